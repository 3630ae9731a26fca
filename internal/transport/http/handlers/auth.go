package http_handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/domain"
	"github.com/baechuer/contacts-service/internal/logger"
	"github.com/baechuer/contacts-service/internal/transport/http/dto"
	"github.com/baechuer/contacts-service/internal/transport/http/middleware"
	"github.com/baechuer/contacts-service/internal/transport/http/response"
	"github.com/baechuer/contacts-service/internal/transport/http/validate"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 64 << 10

type AuthHandler struct {
	svc            *auth.Service
	v              *validate.Validator
	maxAvatarBytes int64
}

func NewAuthHandler(svc *auth.Service, v *validate.Validator, maxAvatarBytes int64) *AuthHandler {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = 5 << 20
	}
	return &AuthHandler{svc: svc, v: v, maxAvatarBytes: maxAvatarBytes}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := h.v.Struct(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_registered")

	response.Created(w, dto.SignupResponse{User: dto.NewUserView(res.User)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := h.v.Struct(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	response.OK(w, dto.LoginResponse{
		Token:     res.Token,
		ExpiresIn: res.ExpiresIn,
		User:      dto.NewUserView(res.User),
	})
}

func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	u, err := h.svc.GetUserByID(r.Context(), uid)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			err = domain.ErrIdentityNotFound()
		}
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.NewUserView(u))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	if err := h.svc.Logout(r.Context(), uid); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Str("user_id", uid).Msg("user_logged_out")
	response.NoContent(w)
}

// UpdateSubscription handles PATCH /api/users.
func (h *AuthHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	var req dto.UpdateSubscriptionRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := h.v.Struct(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.UpdateSubscription(r.Context(), uid, req.Subscription)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.SubscriptionResponse{Email: u.Email, Subscription: string(u.Subscription)})
}

// UpdateAvatar handles PATCH /api/users/avatars (multipart field "avatar").
func (h *AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxAvatarBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || r.ContentLength > h.maxAvatarBytes+multipartOverhead {
			response.WriteError(w, r, domain.ErrFileTooLarge(h.maxAvatarBytes))
			return
		}
		// not multipart at all: same as no file
		response.WriteError(w, r, domain.ErrNoFile())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("avatar")
	if err != nil {
		response.WriteError(w, r, domain.ErrNoFile())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxAvatarBytes+1))
	if err != nil {
		response.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	if int64(len(data)) > h.maxAvatarBytes {
		response.WriteError(w, r, domain.ErrFileTooLarge(h.maxAvatarBytes))
		return
	}

	url, err := h.svc.UpdateAvatar(r.Context(), uid, data)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Str("user_id", uid).Str("avatar_url", url).Msg("avatar_updated")
	response.OK(w, dto.AvatarResponse{AvatarURL: url})
}

// VerifyEmail handles GET /api/users/verify/{verificationToken}.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "verificationToken")

	if err := h.svc.VerifyEmail(r.Context(), token); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MessageResponse{Message: "Verification successful"})
}

// ResendVerification handles POST /api/users/verify.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := h.v.Struct(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if _, err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MessageResponse{Message: "Verification email sent"})
}
