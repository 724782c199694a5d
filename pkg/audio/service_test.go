package audio

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSink records everything played into it. With blockPlay set, Play holds
// until the context is cancelled, simulating a long track.
type fakeSink struct {
	mu        sync.Mutex
	played    []string
	closes    int
	blockPlay bool
}

func (s *fakeSink) Play(ctx context.Context, pcm io.Reader) error {
	data, err := io.ReadAll(pcm)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.played = append(s.played, string(data))
	s.mu.Unlock()

	if s.blockPlay {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSink) playedTracks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.played))
	copy(out, s.played)
	return out
}

func (s *fakeSink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// fakeDialer hands out a fresh fakeSink per dial.
type fakeDialer struct {
	mu        sync.Mutex
	sinks     []*fakeSink
	blockPlay bool
}

func (d *fakeDialer) Dial(guildID uint64, channelID string) (Sink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sink := &fakeSink{blockPlay: d.blockPlay}
	d.sinks = append(d.sinks, sink)
	return sink, nil
}

// fakeDequeuer pops pre-seeded track payloads.
type fakeDequeuer struct {
	mu    sync.Mutex
	items []string
}

func (d *fakeDequeuer) Dequeue(_ context.Context, _ uint64) (io.Reader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return nil, nil
	}
	item := d.items[0]
	d.items = d.items[1:]
	return strings.NewReader(item), nil
}

func (d *fakeDequeuer) remaining() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.items))
	copy(out, d.items)
	return out
}

func TestJoinIdempotent(t *testing.T) {
	dialer := &fakeDialer{}
	svc := NewService(dialer, &fakeDequeuer{}, zap.NewNop())

	first, err := svc.Join(1, "channel-a")
	require.NoError(t, err)
	second, err := svc.Join(1, "channel-a")
	require.NoError(t, err)

	assert.Same(t, first, second, "joining the same channel returns the existing connection")
	assert.Len(t, dialer.sinks, 1)
}

func TestJoinDifferentChannelReplaces(t *testing.T) {
	dialer := &fakeDialer{}
	svc := NewService(dialer, &fakeDequeuer{}, zap.NewNop())

	first, err := svc.Join(1, "channel-a")
	require.NoError(t, err)
	second, err := svc.Join(1, "channel-b")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "channel-b", second.ChannelID)

	// The superseded sink is shut down in the background.
	assert.Eventually(t, func() bool {
		return dialer.sinks[0].closeCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestLeave(t *testing.T) {
	dialer := &fakeDialer{}
	svc := NewService(dialer, &fakeDequeuer{}, zap.NewNop())

	_, err := svc.Join(1, "channel-a")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(1))
	assert.Equal(t, 1, dialer.sinks[0].closeCount())
	assert.Nil(t, svc.Connection(1))

	assert.ErrorIs(t, svc.Leave(1), ErrNoConnection)
}

func TestPlayWithoutConnection(t *testing.T) {
	svc := NewService(&fakeDialer{}, &fakeDequeuer{}, zap.NewNop())
	assert.ErrorIs(t, svc.Play(context.Background(), 1, "channel-a"), ErrNoConnection)
}

func TestStopWithoutConnection(t *testing.T) {
	svc := NewService(&fakeDialer{}, &fakeDequeuer{}, zap.NewNop())
	assert.ErrorIs(t, svc.Stop(1, "channel-a"), ErrNoConnection)
}

func TestWrongChannelRejected(t *testing.T) {
	dialer := &fakeDialer{}
	queue := &fakeDequeuer{items: []string{"track"}}
	svc := NewService(dialer, queue, zap.NewNop())

	_, err := svc.Join(1, "channel-a")
	require.NoError(t, err)

	// Requests issued from another channel must not touch the session.
	assert.ErrorIs(t, svc.Play(context.Background(), 1, "channel-b"), ErrWrongChannel)
	assert.ErrorIs(t, svc.Stop(1, "channel-b"), ErrWrongChannel)

	// The bound channel still works and the queue was left alone.
	require.NoError(t, svc.Play(context.Background(), 1, "channel-a"))
	assert.Equal(t, []string{"track"}, dialer.sinks[0].playedTracks())
}

func TestPlayDrainsQueueInOrder(t *testing.T) {
	dialer := &fakeDialer{}
	queue := &fakeDequeuer{items: []string{"first", "second", "third"}}
	svc := NewService(dialer, queue, zap.NewNop())

	_, err := svc.Join(1, "channel-a")
	require.NoError(t, err)

	require.NoError(t, svc.Play(context.Background(), 1, "channel-a"))
	assert.Equal(t, []string{"first", "second", "third"}, dialer.sinks[0].playedTracks())

	// The loop exited because the queue drained; the session is still
	// joined and can play again.
	require.NotNil(t, svc.Connection(1))
	require.NoError(t, svc.Play(context.Background(), 1, "channel-a"))
}

func TestPlaySecondLoopRejected(t *testing.T) {
	dialer := &fakeDialer{blockPlay: true}
	queue := &fakeDequeuer{items: []string{"endless"}}
	svc := NewService(dialer, queue, zap.NewNop())

	_, err := svc.Join(1, "channel-a")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Play(context.Background(), 1, "channel-a") }()

	// Wait for the loop to pick up the track.
	require.Eventually(t, func() bool {
		return len(dialer.sinks[0].playedTracks()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, svc.Play(context.Background(), 1, "channel-a"), ErrAlreadyPlaying)

	require.NoError(t, svc.Stop(1, "channel-a"))
	select {
	case err := <-done:
		assert.NoError(t, err, "a stopped loop ends cleanly")
	case <-time.After(time.Second):
		t.Fatal("playback loop did not observe stop")
	}
}

func TestStopInterruptsAndLeavesQueueIntact(t *testing.T) {
	dialer := &fakeDialer{blockPlay: true}
	queue := &fakeDequeuer{items: []string{"current", "later-1", "later-2"}}
	svc := NewService(dialer, queue, zap.NewNop())

	_, err := svc.Join(1, "channel-a")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Play(context.Background(), 1, "channel-a") }()

	require.Eventually(t, func() bool {
		return len(dialer.sinks[0].playedTracks()) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop(1, "channel-a"))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("playback loop did not observe stop")
	}

	// Only the in-flight track was consumed; the session is still joined.
	assert.Equal(t, []string{"later-1", "later-2"}, queue.remaining())
	assert.NotNil(t, svc.Connection(1))
}

func TestStopThenPlayProceeds(t *testing.T) {
	dialer := &fakeDialer{}
	queue := &fakeDequeuer{items: []string{"track"}}
	svc := NewService(dialer, queue, zap.NewNop())

	_, err := svc.Join(1, "channel-a")
	require.NoError(t, err)

	// Stop with no loop running arms a fresh cancellation source; the
	// following play must not be pre-cancelled.
	require.NoError(t, svc.Stop(1, "channel-a"))
	require.NoError(t, svc.Play(context.Background(), 1, "channel-a"))

	assert.Equal(t, []string{"track"}, dialer.sinks[0].playedTracks())
}

func TestPlayHonorsCallerContext(t *testing.T) {
	dialer := &fakeDialer{blockPlay: true}
	queue := &fakeDequeuer{items: []string{"endless"}}
	svc := NewService(dialer, queue, zap.NewNop())

	_, err := svc.Join(1, "channel-a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Play(ctx, 1, "channel-a") }()

	require.Eventually(t, func() bool {
		return len(dialer.sinks[0].playedTracks()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("playback loop did not observe caller cancellation")
	}
}
