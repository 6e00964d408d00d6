package actorctx

import (
	"context"

	"github.com/nomadworks/tourhub/internal/http/middlewares"
)

// Carries the acting user on a plain context.Context for code below the
// HTTP layer (repos, jobs) that must not depend on gin.

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, middlewares.KeyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(middlewares.KeyUserID).(string)

	return v, ok && v != ""
}
