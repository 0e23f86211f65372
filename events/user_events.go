package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserDeletedEvent is emitted when an account is removed.
type UserDeletedEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	DeletedAt time.Time `json:"deleted_at"`
}

// UserDeletedV1 is the typed event definition for account removal.
// Subject: events.auth.v1.user-deleted
var UserDeletedV1 = helper.EventDefinition[UserDeletedEvent](
	"auth", "UserDeleted", "v1",
)
