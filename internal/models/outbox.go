package models

import (
	"encoding/json"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
)

// OutboxEntry is a pending remote write recorded alongside the local mutation
type OutboxEntry struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Collection    string                 `json:"collection"`
	Op            constants.OutboxOp     `json:"op"`
	EntityID      string                 `json:"entity_id,omitempty"`
	Date          string                 `json:"date,omitempty"`
	Payload       json.RawMessage        `json:"payload,omitempty"`
	Attempts      int                    `json:"attempts"`
	MaxAttempts   int                    `json:"max_attempts"`
	NextAttemptAt time.Time              `json:"next_attempt_at"`
	Status        constants.OutboxStatus `json:"status"`
	LastError     string                 `json:"last_error,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
