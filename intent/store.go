package intent

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/steward/id"
)

// ErrNotFound is returned when an intent cannot be found.
var ErrNotFound = errors.New("intent: not found")

// Store defines persistence operations for mutation intents.
type Store interface {
	// CreateIntent persists a new intent. Must be durably written before
	// the first external side effect of the operation it tracks.
	CreateIntent(ctx context.Context, in *Intent) error

	// UpdateIntent persists stage transitions and the provisioned
	// principal ID.
	UpdateIntent(ctx context.Context, in *Intent) error

	// GetIntent retrieves an intent by ID.
	GetIntent(ctx context.Context, intentID id.IntentID) (*Intent, error)

	// ListIntents returns intents matching the filter.
	ListIntents(ctx context.Context, filter *ListFilter) ([]*Intent, error)

	// PurgeResolvedIntents removes resolved intents created before the
	// given time. Returns the number removed.
	PurgeResolvedIntents(ctx context.Context, before time.Time) (int64, error)
}
