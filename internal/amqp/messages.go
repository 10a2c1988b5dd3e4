package amqp

import (
	"encoding/json"
	"time"
)

// ActivityMessage tells the worker that something happened in a house. The
// worker turns these into activity_log rows; they carry the rendered message
// so the worker never needs to re-derive ledger state.
type ActivityMessage struct {
	HouseID   int64     `json:"house_id"`
	BillID    int64     `json:"bill_id,omitempty"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewActivityMessage creates a message stamped with the current time.
func NewActivityMessage(houseID, billID int64, kind, message string) *ActivityMessage {
	return &ActivityMessage{
		HouseID:   houseID,
		BillID:    billID,
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON creates a message from JSON bytes.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
