package mail

import (
	"context"

	"karaoke-subscription/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.Mailer = (*NoopMailer)(nil)

// NoopMailer logs instead of sending. Used in dev mode and demos.
type NoopMailer struct {
	log *zerolog.Logger
}

func NewNoopMailer(logger *zerolog.Logger) *NoopMailer {
	l := logger.With().Str("component", "NoopMailer").Logger()
	return &NoopMailer{log: &l}
}

func (m *NoopMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.log.Info().Str("to", to).Str("subject", subject).Int("body_bytes", len(htmlBody)).Msg("mail suppressed (noop)")
	return nil
}
