package snapshotv1

import (
	"time"

	orderv1 "github.com/Karlli16/OrderMatch/internal/domain/order/v1"
)

// Snapshot captures the resting-order set of the whole engine at a point
// in time. Books are derived state and are recomputed on restore.
type Snapshot struct {
	TakenAt time.Time `json:"takenAt"`
	// Orders holds a copy of every open resting order across all symbols.
	Orders []orderv1.Order `json:"orders"`
}
