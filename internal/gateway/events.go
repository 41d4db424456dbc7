package gateway

import "time"

const (
	EventMomentStep    = "moment.step"
	EventMomentCreated = "moment.created"
	EventMomentFailed  = "moment.failed"
)

// StepEvent is emitted at every phase transition of a creation run.
type StepEvent struct {
	RunID  string    `json:"run_id"`
	DropID int64     `json:"drop_id"`
	Step   string    `json:"step"`
	At     time.Time `json:"at"`
}

// MomentCreatedEvent is emitted once the remote system has stored the moment.
type MomentCreatedEvent struct {
	RunID     string    `json:"run_id"`
	MomentID  string    `json:"moment_id"`
	Author    string    `json:"author"`
	DropID    int64     `json:"drop_id"`
	TokenID   *int64    `json:"token_id,omitempty"`
	MediaKeys []string  `json:"media_keys"`
	CreatedOn time.Time `json:"created_on"`
}

// MomentFailedEvent is emitted when a run ends without a moment. OrphanedKeys
// lists media uploaded before the creation call was rejected.
type MomentFailedEvent struct {
	RunID        string    `json:"run_id"`
	DropID       int64     `json:"drop_id"`
	Reason       string    `json:"reason"`
	Error        string    `json:"error"`
	OrphanedKeys []string  `json:"orphaned_keys,omitempty"`
	At           time.Time `json:"at"`
}
