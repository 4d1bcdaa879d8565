package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns the processor the audit dispatcher workers call.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditProcessor {
	return &auditService{
		repo: repo,
		log:  log.With().Str("component", "audit").Logger(),
	}
}

// Process persists a single auth event.
func (s *auditService) Process(ctx context.Context, event domain.AuthEvent) error {
	start := time.Now()

	if event.Kind == "" {
		metrics.AuditEventsTotal.WithLabelValues("unknown", "invalid").Inc()
		return fmt.Errorf("process audit event: %w: empty kind", domain.ErrInvalidInput)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = start.UTC()
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues(string(event.Kind), "error").Inc()
		return fmt.Errorf("process audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(event.Kind), "stored").Inc()
	metrics.AuditProcessingDuration.Observe(time.Since(start).Seconds())

	s.log.Debug().
		Str("kind", string(event.Kind)).
		Str("user_id", event.UserID).
		Msg("audit event stored")
	return nil
}
