package repository

import (
	"context"

	"reportdesk/server/internal/audit/domain"
)

// Repository defines persistence for audit logs. The core only appends;
// browsing the log is handled outside this server.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
}
