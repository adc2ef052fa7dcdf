package middleware

import (
	"context"

	"github.com/smartq/launchpad/pkg/constants"
)

func contextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}

// RequestID returns the request id assigned by WithLogger, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(constants.RequestIDKey).(string)
	return id
}
