// Package audit records the security-relevant actions taken through the
// console: sign-ins, sign-outs and destructive project or scan changes.
package audit

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"aura.app/internal/obs"
	"aura.app/internal/session"
)

// Console events.
const (
	EventLogin         = "auth.login"
	EventLoginFailed   = "auth.login_failed"
	EventRegister      = "auth.register"
	EventLogout        = "auth.logout"
	EventProjectCreate = "project.create"
	EventProjectDelete = "project.delete"
	EventScanStart     = "scan.start"
	EventScanDelete    = "scan.delete"
)

type ctxKey struct{}

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID returns the identifier set by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// LogEvent writes an audit entry enriched with the request id and user
// found in ctx. Fields are emitted in key order.
func LogEvent(ctx context.Context, event string, fields map[string]string) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("audit: event name is required")
	}
	zf := []zap.Field{zap.String("type", "audit"), zap.String("event", event)}
	if rid := RequestID(ctx); rid != "" {
		zf = append(zf, zap.String("request_id", rid))
	}
	if user, ok := session.UserFromContext(ctx); ok {
		zf = append(zf, zap.String("user", user))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, zap.String(k, fields[k]))
	}
	zf = append(zf, zap.Dict("fields", attrs...))
	obs.Logger().Info("audit", zf...)
	return nil
}
