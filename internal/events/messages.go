package events

import (
	"encoding/json"
	"time"
)

// Actions carried by change messages.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EntityChangedMessage tells other devices that one of the user's entities
// changed. It carries only identifiers; consumers re-fetch the data.
type EntityChangedMessage struct {
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntityChangedMessage(entity, id, action, userID string) *EntityChangedMessage {
	return &EntityChangedMessage{
		Entity:    entity,
		ID:        id,
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *EntityChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntityChangedMessageFromJSON(data []byte) (*EntityChangedMessage, error) {
	var msg EntityChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
