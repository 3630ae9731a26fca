package memory

import (
	"context"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/logger"
)

// LogPublisher writes verification links to the log instead of sending mail.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (p *LogPublisher) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	logger.WithCtx(ctx).Info().
		Str("user_id", evt.UserID).
		Str("email", evt.Email).
		Str("url", evt.URL).
		Msg("verify_email_link")
	return nil
}
