package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Message is a public feed post or a private note between two players.
// Private messages always carry a receiver; public messages never do.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	SenderID   uuid.UUID  `json:"senderId"`
	ReceiverID *uuid.UUID `json:"receiverId"`
	Content    string     `json:"content"`
	IsPrivate  bool       `json:"isPrivate"`
	MediaURL   *string    `json:"mediaUrl"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// MessageView is a message with the sender's display fields resolved.
type MessageView struct {
	Message
	SenderUsername string `json:"senderUsername"`
	SenderSymbol   string `json:"senderSymbol"`
	SenderAvatar   string `json:"senderAvatar"`
}

// MonitoredMessage is a private message with both participants named.
type MonitoredMessage struct {
	Message
	SenderUsername   string `json:"senderUsername"`
	ReceiverUsername string `json:"receiverUsername"`
}

// InboxEntry summarises the private messages one sender sent to the caller.
// MessageCount counts every message ever received from that sender; no read
// state is stored.
type InboxEntry struct {
	SenderID       uuid.UUID `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	SenderSymbol   string    `json:"senderSymbol"`
	SenderAvatar   string    `json:"senderAvatar"`
	LastMessage    string    `json:"lastMessage"`
	LastMessageAt  time.Time `json:"lastMessageAt"`
	MessageCount   int       `json:"messageCount"`
}

// BuildInbox groups received private messages by sender. The result is
// ordered by the most recent message first.
func BuildInbox(received []MessageView) []InboxEntry {
	bySender := make(map[uuid.UUID]*InboxEntry)
	for _, m := range received {
		e, ok := bySender[m.SenderID]
		if !ok {
			e = &InboxEntry{
				SenderID:       m.SenderID,
				SenderUsername: m.SenderUsername,
				SenderSymbol:   m.SenderSymbol,
				SenderAvatar:   m.SenderAvatar,
			}
			bySender[m.SenderID] = e
		}
		e.MessageCount++
		if e.LastMessageAt.IsZero() || !m.CreatedAt.Before(e.LastMessageAt) {
			e.LastMessage = m.Content
			e.LastMessageAt = m.CreatedAt
		}
	}

	inbox := make([]InboxEntry, 0, len(bySender))
	for _, e := range bySender {
		inbox = append(inbox, *e)
	}
	sort.Slice(inbox, func(i, j int) bool {
		if inbox[i].LastMessageAt.Equal(inbox[j].LastMessageAt) {
			return inbox[i].SenderUsername < inbox[j].SenderUsername
		}
		return inbox[i].LastMessageAt.After(inbox[j].LastMessageAt)
	})
	return inbox
}
