package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

type ctxKey string

const connIDKey ctxKey = "audit_conn_id"

// WithConnID attaches the connection identifier to the context for audit logging.
func WithConnID(ctx context.Context, connID string) context.Context {
	connID = strings.TrimSpace(connID)
	if connID == "" {
		return ctx
	}
	return context.WithValue(ctx, connIDKey, connID)
}

// ConnIDFromContext extracts the connection id from context if present.
func ConnIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(connIDKey).(string)
	return v, ok
}

// LogEvent writes an audit log entry enriched with the connection id.
func LogEvent(ctx context.Context, log zerolog.Logger, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	dict := zerolog.Dict()
	for k, v := range fields {
		dict = dict.Interface(k, v)
	}
	e := log.Info().
		Str("type", "audit").
		Str("event", event)
	if cid, ok := ConnIDFromContext(ctx); ok {
		e = e.Str("conn_id", cid)
	}
	e.Dict("fields", dict).Send()
	return nil
}
