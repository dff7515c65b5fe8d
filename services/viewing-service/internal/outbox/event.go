package outbox

import "encoding/json"

// Topic names double as event types: one event kind per topic.
const (
	TopicViewingRequested = "viewing.appointment.requested.v1"
	TopicViewingConfirmed = "viewing.appointment.confirmed.v1"
	TopicViewingCancelled = "viewing.appointment.cancelled.v1"
	TopicViewingCompleted = "viewing.appointment.completed.v1"
)

// Event is the envelope staged in viewing_outbox_events inside the same
// transaction as the state change it announces.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// NewEvent marshals the payload map into an appointment-aggregate event.
func NewEvent(appointmentID, eventType string, payload map[string]any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "viewing_appointment",
		AggregateID:   appointmentID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
