package userctx

import (
	"context"

	"github.com/nkiryanov/campusauth/internal/models"
)

type ctxKey string

const (
	identityKey ctxKey = "identity"
	failureKey  ctxKey = "auth_failure"
)

// Create a new context with the identity
func New(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Extract the identity from the context
func FromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}

// Create a new context with the reason why identity was not resolved
func WithFailure(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, failureKey, err)
}

// Extract the identity resolution failure, nil if there was no failure
func FailureFromContext(ctx context.Context) error {
	err, _ := ctx.Value(failureKey).(error)
	return err
}
