package infra

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitors/server/internal/domain"
)

type fakeOutbox struct {
	mu        sync.Mutex
	records   []domain.OutboxRecord
	published map[int64]bool
	fetchErr  error
}

func newFakeOutbox(topics ...string) *fakeOutbox {
	f := &fakeOutbox{published: map[int64]bool{}}
	for i, topic := range topics {
		f.records = append(f.records, domain.OutboxRecord{
			ID: int64(i + 1), Topic: topic, Key: []byte("k"), Payload: []byte(`{}`),
		})
	}
	return f
}

func (f *fakeOutbox) FetchUnpublished(_ context.Context, limit int) ([]domain.OutboxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []domain.OutboxRecord
	for _, r := range f.records {
		if !f.published[r.ID] && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[id] = true
	return nil
}

type recordingProducer struct {
	mu     sync.Mutex
	topics []string
	failOn string
}

func (p *recordingProducer) Publish(_ context.Context, topic string, _, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if topic == p.failOn {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOutboxRelay_PublishesInOrder(t *testing.T) {
	src := newFakeOutbox("traitors.vote.cast", "traitors.message.sent", "traitors.vote.cleared")
	prod := &recordingProducer{}
	relay := NewOutboxRelay(src, prod, time.Second, discardLogger())

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"traitors.vote.cast", "traitors.message.sent", "traitors.vote.cleared"}, prod.topics)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxRelay_StopsAtFirstFailure(t *testing.T) {
	src := newFakeOutbox("traitors.vote.cast", "traitors.card.drawn", "traitors.vote.cleared")
	prod := &recordingProducer{failOn: "traitors.card.drawn"}
	relay := NewOutboxRelay(src, prod, time.Second, discardLogger())

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, src.published[1])
	assert.False(t, src.published[2])
	assert.False(t, src.published[3])
}

func TestOutboxRelay_FetchError(t *testing.T) {
	src := newFakeOutbox()
	src.fetchErr = errors.New("connection reset")
	relay := NewOutboxRelay(src, &recordingProducer{}, time.Second, discardLogger())

	_, err := relay.RelayOnce(context.Background())
	assert.Error(t, err)
}

func TestOutboxRelay_StartDrainsUntilCancelled(t *testing.T) {
	src := newFakeOutbox("traitors.user.registered")
	prod := &recordingProducer{}
	relay := NewOutboxRelay(src, prod, 5*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := relay.Start(ctx)

	assert.Eventually(t, func() bool {
		prod.mu.Lock()
		defer prod.mu.Unlock()
		return len(prod.topics) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestNewOutboxRelay_DefaultInterval(t *testing.T) {
	relay := NewOutboxRelay(newFakeOutbox(), &recordingProducer{}, 0, discardLogger())
	assert.Equal(t, 500*time.Millisecond, relay.interval)
	assert.Equal(t, defaultOutboxBatch, relay.batchSize)
}
