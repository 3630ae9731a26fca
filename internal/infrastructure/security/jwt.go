package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/domain"
)

// JWTSigner issues and checks HS256 bearer tokens. The user id travels in
// "sub"; every token gets a random "jti".
type JWTSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

func NewJWTSigner(secret, issuer string) *JWTSigner {
	s := &JWTSigner{secret: []byte(secret), issuer: issuer, now: time.Now}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	s.parser = jwt.NewParser(opts...)
	return s
}

type accessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) SignAccessToken(c auth.TokenClaims, ttl time.Duration) (string, error) {
	iat := s.now()
	claims := accessClaims{
		Email: c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

func (s *JWTSigner) key(*jwt.Token) (any, error) { return s.secret, nil }

// VerifyAccessToken reports expiry separately; every other failure is
// token_invalid.
func (s *JWTSigner) VerifyAccessToken(token string) (auth.TokenClaims, error) {
	var claims accessClaims
	if _, err := s.parser.ParseWithClaims(token, &claims, s.key); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.TokenClaims{}, domain.ErrTokenExpired()
		}
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}
	if claims.Subject == "" {
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	out := auth.TokenClaims{UserID: claims.Subject, Email: claims.Email}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	out.ExpiresAt = claims.ExpiresAt.Time
	return out, nil
}
