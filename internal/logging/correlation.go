package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Tenant identifies the multi-tenant scope a request is operating in.
type Tenant struct {
	OrgID     string
	TeamID    string
	ProjectID string
}

type ctxKey int

const (
	ctxKeyTenant ctxKey = iota
	ctxKeySession
	ctxKeyRequest
	ctxKeyLogger
)

const (
	maxTenantFieldLen = 64
	maxIDLen          = 128
)

var tokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// token validates the short identifier-like strings shared by tenant
// fields, session IDs, and request IDs.
func token(value, name string, maxLen int) error {
	switch {
	case value == "":
		return fmt.Errorf("%s cannot be empty", name)
	case !utf8.ValidString(value):
		return fmt.Errorf("%s contains invalid UTF-8", name)
	case len(value) > maxLen:
		return fmt.Errorf("%s exceeds max length %d", name, maxLen)
	case !tokenPattern.MatchString(value):
		return fmt.Errorf("%s must match [A-Za-z0-9_-]+", name)
	}
	return nil
}

// WithTenant attaches tenant to ctx. Panics if tenant is nil or any of
// its fields fail token validation; tenant identity is expected to come
// from trusted auth middleware, not user input, so a malformed value here
// is a programming error rather than something to recover from.
func WithTenant(ctx context.Context, tenant *Tenant) context.Context {
	if tenant == nil {
		panic("logging: tenant cannot be nil")
	}
	for _, f := range []struct{ name, value string }{
		{"tenant.OrgID", tenant.OrgID},
		{"tenant.TeamID", tenant.TeamID},
		{"tenant.ProjectID", tenant.ProjectID},
	} {
		if err := token(f.value, f.name, maxTenantFieldLen); err != nil {
			panic("logging: " + err.Error())
		}
	}
	return context.WithValue(ctx, ctxKeyTenant, tenant)
}

// TenantFromContext returns the tenant attached to ctx, or nil.
func TenantFromContext(ctx context.Context) *Tenant {
	t, _ := ctx.Value(ctxKeyTenant).(*Tenant)
	return t
}

// WithSessionID attaches a session ID to ctx. Panics on an invalid ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if err := token(sessionID, "sessionID", maxIDLen); err != nil {
		panic("logging: " + err.Error())
	}
	return context.WithValue(ctx, ctxKeySession, sessionID)
}

// SessionIDFromContext returns the session ID attached to ctx, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeySession).(string)
	return id
}

// WithRequestID attaches a request ID to ctx. Panics on an invalid ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := token(requestID, "requestID", maxIDLen); err != nil {
		panic("logging: " + err.Error())
	}
	return context.WithValue(ctx, ctxKeyRequest, requestID)
}

// RequestIDFromContext returns the request ID attached to ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequest).(string)
	return id
}

// WithLogger attaches logger to ctx for retrieval via FromContext.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger if
// none was attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}

// ContextFields collects trace, tenant, session and request correlation
// data out of ctx as zap fields, so a caller doesn't have to repeat
// zap.String calls for them at every log site.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if tenant := TenantFromContext(ctx); tenant != nil {
		fields = append(fields,
			zap.String("tenant.org", tenant.OrgID),
			zap.String("tenant.team", tenant.TeamID),
			zap.String("tenant.project", tenant.ProjectID),
		)
	}
	if id := SessionIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("session.id", id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}
