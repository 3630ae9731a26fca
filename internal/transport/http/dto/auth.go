package dto

import "github.com/baechuer/contacts-service/internal/domain"

// -------- Requests --------

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *SignupRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ResendVerificationRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type UpdateSubscriptionRequest struct {
	Subscription string `json:"subscription" validate:"required,subscription"`
}

// -------- Responses --------

// UserView is the public projection of an identity. It never carries the password hash.
type UserView struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL"`
}

func NewUserView(u domain.User) UserView {
	return UserView{
		Email:        u.Email,
		Subscription: string(u.Subscription),
		AvatarURL:    u.AvatarURL,
	}
}

type SignupResponse struct {
	User UserView `json:"user"`
}

type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresIn int64    `json:"expiresIn"` // seconds
	User      UserView `json:"user"`
}

type SubscriptionResponse struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
}

type AvatarResponse struct {
	AvatarURL string `json:"avatarURL"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
