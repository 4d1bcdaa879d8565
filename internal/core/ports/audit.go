package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// AuditRepository persists auth events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditSink accepts auth events without blocking the caller.
type AuditSink interface {
	Enqueue(event domain.AuthEvent)
}

// AuditProcessor handles one dequeued auth event.
type AuditProcessor interface {
	Process(ctx context.Context, event domain.AuthEvent) error
}
