package domain

import "github.com/google/uuid"

// NewUserRegisteredEvent announces a new player or game master.
func NewUserRegisteredEvent(u *User) GameEvent {
	return NewGameEvent(AggregateUser, u.ID.String(), EventUserRegistered, map[string]interface{}{
		"user_id":        u.ID.String(),
		"username":       u.Username,
		"is_game_master": u.IsGameMaster,
	})
}

// NewVoteEvent records a vote being cast (target set) or cleared (target nil).
func NewVoteEvent(voterID uuid.UUID, targetID *uuid.UUID) GameEvent {
	evt := EventVoteCast
	payload := map[string]interface{}{"voter_id": voterID.String()}
	if targetID == nil {
		evt = EventVoteCleared
	} else {
		payload["target_id"] = targetID.String()
	}
	return NewGameEvent(AggregateVote, voterID.String(), evt, payload)
}

// NewMessageSentEvent carries message metadata only; content stays in the database.
func NewMessageSentEvent(m *Message) GameEvent {
	payload := map[string]interface{}{
		"message_id": m.ID.String(),
		"sender_id":  m.SenderID.String(),
		"is_private": m.IsPrivate,
	}
	if m.ReceiverID != nil {
		payload["receiver_id"] = m.ReceiverID.String()
	}
	return NewGameEvent(AggregateMessage, m.SenderID.String(), EventMessageSent, payload)
}

// NewAnnouncementEvent records an announcement being created or deleted.
func NewAnnouncementEvent(id uuid.UUID, eventType EventType, title string) GameEvent {
	return NewGameEvent(AggregateAnnouncement, id.String(), eventType, map[string]string{
		"announcement_id": id.String(),
		"title":           title,
	})
}

// NewCardDrawnEvent records a card draw.
func NewCardDrawnEvent(d *CardDraw) GameEvent {
	return NewGameEvent(AggregateCard, d.UserID.String(), EventCardDrawn, map[string]string{
		"user_id":   d.UserID.String(),
		"card_id":   d.CardID,
		"card_type": d.CardType,
	})
}
