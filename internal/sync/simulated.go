package sync

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
)

const (
	processingAfter = 2 * time.Minute
	inProgressAfter = 5 * time.Minute
	completedAfter  = 15 * time.Minute

	// completionProbability is the per-check chance that a sufficiently old
	// in_progress order finishes.
	completionProbability = 0.8
)

// SimulatedChecker advances orders on elapsed time since creation, standing
// in for a real fulfillment provider. Progression: pending moves to
// processing after two minutes, processing to in_progress after five, and
// in_progress completes with 80% probability once fifteen minutes have
// passed.
type SimulatedChecker struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewSimulatedChecker seeds the checker's random source. Tests pass a fixed
// seed to make the completion roll reproducible.
func NewSimulatedChecker(seed int64) *SimulatedChecker {
	return &SimulatedChecker{rand: rand.New(rand.NewSource(seed))}
}

func (c *SimulatedChecker) roll() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rand.Float64()
}

// CheckStatus returns the status the simulated provider would report now.
// Statuses outside the fulfillment track are returned unchanged.
func (c *SimulatedChecker) CheckStatus(_ context.Context, order models.Order, now time.Time) (enums.OrderStatus, error) {
	elapsed := now.Sub(order.CreatedAt)

	switch order.Status {
	case enums.OrderStatusPending:
		if elapsed >= processingAfter {
			return enums.OrderStatusProcessing, nil
		}
	case enums.OrderStatusProcessing:
		if elapsed >= inProgressAfter {
			return enums.OrderStatusInProgress, nil
		}
	case enums.OrderStatusInProgress:
		if elapsed >= completedAfter && c.roll() < completionProbability {
			return enums.OrderStatusCompleted, nil
		}
	}
	return order.Status, nil
}
