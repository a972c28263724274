package testutil

import (
	"context"
	"time"

	id "dealflow/pkg/domain"
	"dealflow/pkg/requestcontext"
)

// ActorContext returns a service-level context carrying an authenticated user
// and a fixed request time, as the HTTP middleware chain would set them.
func ActorContext(userID id.UserID, now time.Time) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	return requestcontext.WithTime(ctx, now)
}
