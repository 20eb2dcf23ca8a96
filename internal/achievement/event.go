// Package achievement publishes claim events for asynchronous achievement
// evaluation. The pipeline is strictly fire-and-forget: a full queue or a
// failing sink never surfaces to the claim path.
package achievement

import "time"

// EventKitClaimed is emitted once per successfully claimed license.
const EventKitClaimed = "kit_claimed"

// Event is the wire payload delivered to the achievement sink.
type Event struct {
	Type        string    `json:"type"`
	UserID      string    `json:"userId"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	OccurredAt  time.Time `json:"occurredAt"`
}
