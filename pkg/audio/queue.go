package audio

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Streamer materializes a queued track into a playable byte stream.
type Streamer interface {
	Stream(ctx context.Context, item *Metadata) (io.Reader, error)
}

// Queue holds one FIFO of pending tracks per guild. Queues are created lazily
// on first use; an empty queue is equivalent to an absent one. Operations on
// different guilds never block each other.
type Queue struct {
	streamer Streamer
	queues   sync.Map // uint64 -> *guildQueue
	logger   *zap.Logger
}

type guildQueue struct {
	mu    sync.Mutex
	items []*Metadata
}

// NewQueue creates a Queue that downloads dequeued tracks via streamer.
func NewQueue(streamer Streamer, logger *zap.Logger) *Queue {
	return &Queue{
		streamer: streamer,
		logger:   logger,
	}
}

func (q *Queue) guild(guildID uint64) *guildQueue {
	v, _ := q.queues.LoadOrStore(guildID, &guildQueue{})
	return v.(*guildQueue)
}

// Enqueue appends item to the guild's queue. Always succeeds; the item is not
// validated here.
func (q *Queue) Enqueue(guildID uint64, item *Metadata) {
	gq := q.guild(guildID)
	gq.mu.Lock()
	gq.items = append(gq.items, item)
	depth := len(gq.items)
	gq.mu.Unlock()

	q.logger.Info("track enqueued",
		zap.Uint64("guild", guildID),
		zap.String("title", item.Title),
		zap.Int("depth", depth))
}

// Dequeue pops the guild's head track and materializes it into a byte stream
// rewound to its start. An empty queue returns (nil, nil); a popped track
// that fails to materialize returns an error and is still considered
// consumed. The download runs outside the queue's lock, so later enqueues are
// not blocked by it.
func (q *Queue) Dequeue(ctx context.Context, guildID uint64) (io.Reader, error) {
	gq := q.guild(guildID)

	gq.mu.Lock()
	if len(gq.items) == 0 {
		gq.mu.Unlock()
		return nil, nil
	}
	item := gq.items[0]
	gq.items = gq.items[1:]
	gq.mu.Unlock()

	q.logger.Info("track dequeued",
		zap.Uint64("guild", guildID),
		zap.String("title", item.Title))

	stream, err := q.streamer.Stream(ctx, item)
	if err != nil {
		return nil, errors.Wrapf(err, "downloading %q", item.Title)
	}
	return stream, nil
}

// Clear discards all pending tracks for the guild. A dequeue already in
// flight is unaffected.
func (q *Queue) Clear(guildID uint64) int {
	gq := q.guild(guildID)
	gq.mu.Lock()
	defer gq.mu.Unlock()

	discarded := len(gq.items)
	gq.items = nil
	return discarded
}

// List returns a snapshot of the guild's pending tracks in play order.
func (q *Queue) List(guildID uint64) []*Metadata {
	gq := q.guild(guildID)
	gq.mu.Lock()
	defer gq.mu.Unlock()

	items := make([]*Metadata, len(gq.items))
	copy(items, gq.items)
	return items
}
