package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartq/launchpad/pkg/constants"
)

var ErrNoActor = errors.New("no actor found in context")

// Actor is the authenticated caller as resolved by the directory collaborator.
// The engine never mutates role assignments; it only reads them.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, constants.ActorKey, actor)
}

func UseActor(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(constants.ActorKey).(Actor)
	if !ok || actor.ID == uuid.Nil {
		return Actor{}, ErrNoActor
	}
	return actor, nil
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger
}
