// Package auditlog writes auth events to a structured log stream.
package auditlog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Repository implements ports.AuditRepository on top of a zerolog logger.
// It is used when no database is configured for the audit trail.
type Repository struct {
	log zerolog.Logger
}

func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("component", "audit_trail").Logger()}
}

func (r *Repository) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	e := r.log.Info().
		Str("kind", string(event.Kind)).
		Time("occurred_at", event.Timestamp)
	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.Email != "" {
		e = e.Str("email", event.Email)
	}
	e.Msg("auth event")
	return nil
}

var _ ports.AuditRepository = (*Repository)(nil)
