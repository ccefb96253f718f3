package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all game event types.
type EventType string

const (
	EventUserRegistered      EventType = "registered"
	EventVoteCast            EventType = "cast"
	EventVoteCleared         EventType = "cleared"
	EventMessageSent         EventType = "sent"
	EventAnnouncementCreated EventType = "created"
	EventAnnouncementDeleted EventType = "deleted"
	EventCardDrawn           EventType = "drawn"
)

// AggregateType enumerates the entities events are keyed by.
type AggregateType string

const (
	AggregateUser         AggregateType = "user"
	AggregateVote         AggregateType = "vote"
	AggregateMessage      AggregateType = "message"
	AggregateAnnouncement AggregateType = "announcement"
	AggregateCard         AggregateType = "card"
)

// GameEvent is published to the event stream after a state change commits.
type GameEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Topic is the stream topic for the event, e.g. "traitors.vote.cast".
func (e GameEvent) Topic() string {
	return "traitors." + string(e.AggregateType) + "." + string(e.EventType)
}

// NewGameEvent builds an event with a fresh id. Payload marshalling errors
// leave an empty JSON object.
func NewGameEvent(aggregate AggregateType, aggregateID string, eventType EventType, payload interface{}) GameEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}
	return GameEvent{
		EventID:       uuid.New(),
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       raw,
		OccurredAt:    time.Now().UTC(),
	}
}
