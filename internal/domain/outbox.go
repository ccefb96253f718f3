package domain

import "time"

// OutboxRecord is a serialized game event waiting to be relayed to the event stream.
type OutboxRecord struct {
	ID        int64
	Topic     string
	Key       []byte
	Payload   []byte
	CreatedAt time.Time
}
