package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id that audit entries are correlated by
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit"))}
}

func (al *Logger) LogAction(ctx context.Context, actorID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

// LogLease records the outcome of a lease assignment on an apartment
func (al *Logger) LogLease(ctx context.Context, actorID, contractID, apartmentID, status string) {
	al.LogAction(ctx, actorID, "create_lease", "contract", contractID, status, "apartment="+apartmentID)
}

// LogTenantDeletion records the outcome of a tenant deletion
func (al *Logger) LogTenantDeletion(ctx context.Context, actorID, tenantID, status, details string) {
	al.LogAction(ctx, actorID, "delete_tenant", "tenant", tenantID, status, details)
}

// LogAccount records identity lifecycle events (registration, manager creation, deletion)
func (al *Logger) LogAccount(ctx context.Context, actorID, action, userID, status string) {
	al.LogAction(ctx, actorID, action, "identity", userID, status, "")
}

func (al *Logger) LogDenied(ctx context.Context, actorID, reason string) {
	al.LogAction(ctx, actorID, "access_denied", "api", "", "denied", reason)
}
