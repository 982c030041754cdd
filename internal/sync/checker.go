package sync

import (
	"context"
	"time"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
)

// StatusChecker resolves the fulfillment provider's current view of an
// order. Implementations must be safe for sequential reuse across a batch;
// the service never calls CheckStatus concurrently for the same batch.
type StatusChecker interface {
	CheckStatus(ctx context.Context, order models.Order, now time.Time) (enums.OrderStatus, error)
}
