package audio

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrNoConnection reports an operation on a guild with no live voice
	// connection.
	ErrNoConnection = errors.New("no voice connection exists for this guild")
	// ErrAlreadyPlaying reports a play request while a playback loop is
	// already running for the guild.
	ErrAlreadyPlaying = errors.New("playback is already running for this guild")
	// ErrWrongChannel reports a playback request issued from a voice channel
	// other than the one the guild's connection is bound to.
	ErrWrongChannel = errors.New("the connection is bound to a different voice channel")
)

// Dialer establishes an audio sink bound to a guild's voice channel.
type Dialer interface {
	Dial(guildID uint64, channelID string) (Sink, error)
}

// Dequeuer is the queue side the playback loop drains.
type Dequeuer interface {
	Dequeue(ctx context.Context, guildID uint64) (io.Reader, error)
}

// Connection is the live binding of a guild to a voice channel: the sink that
// plays audio and the cancellation signal that stops it.
type Connection struct {
	GuildID   uint64
	ChannelID string
	Sink      Sink

	mu      sync.Mutex
	stop    chan struct{}
	playing bool
}

func newConnection(guildID uint64, channelID string, sink Sink) *Connection {
	return &Connection{
		GuildID:   guildID,
		ChannelID: channelID,
		Sink:      sink,
		stop:      make(chan struct{}),
	}
}

// stopSignal returns the channel closed by the next Cancel call.
func (c *Connection) stopSignal() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop
}

// Cancel fires the connection's current stop signal and immediately installs
// a fresh one, so a later play is not pre-cancelled.
func (c *Connection) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.stop)
	c.stop = make(chan struct{})
}

func (c *Connection) setPlaying(playing bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if playing && c.playing {
		return false
	}
	c.playing = playing
	return true
}

// Service owns at most one Connection and one playback loop per guild.
type Service struct {
	dialer Dialer
	queue  Dequeuer
	slots  sync.Map // uint64 -> *slot
	logger *zap.Logger
}

// slot serializes connection changes for one guild without blocking other
// guilds.
type slot struct {
	mu   sync.Mutex
	conn *Connection
}

// NewService creates a playback session manager that dials sinks via dialer
// and drains tracks from queue.
func NewService(dialer Dialer, queue Dequeuer, logger *zap.Logger) *Service {
	return &Service{
		dialer: dialer,
		queue:  queue,
		logger: logger,
	}
}

func (s *Service) slot(guildID uint64) *slot {
	v, _ := s.slots.LoadOrStore(guildID, &slot{})
	return v.(*slot)
}

// Connection returns the guild's live connection, or nil.
func (s *Service) Connection(guildID uint64) *Connection {
	sl := s.slot(guildID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.conn
}

// Join binds the guild to the given voice channel. Joining the channel the
// guild is already connected to returns the existing connection unchanged.
// Joining a different channel installs a fresh connection and shuts the old
// sink down in the background; shutdown failures are logged, never returned.
func (s *Service) Join(guildID uint64, channelID string) (*Connection, error) {
	sl := s.slot(guildID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.conn != nil && sl.conn.ChannelID == channelID {
		return sl.conn, nil
	}

	sink, err := s.dialer.Dial(guildID, channelID)
	if err != nil {
		return nil, errors.Wrap(err, "joining voice channel")
	}

	old := sl.conn
	sl.conn = newConnection(guildID, channelID, sink)

	if old != nil {
		go func() {
			old.Cancel()
			if err := old.Sink.Close(); err != nil {
				s.logger.Warn("failed to stop superseded connection",
					zap.Uint64("guild", guildID), zap.Error(err))
			}
		}()
	}

	s.logger.Info("joined voice channel",
		zap.Uint64("guild", guildID),
		zap.String("channel", channelID))
	return sl.conn, nil
}

// Leave removes the guild's connection and stops its sink. Errors if no
// connection exists.
func (s *Service) Leave(guildID uint64) error {
	sl := s.slot(guildID)
	sl.mu.Lock()
	conn := sl.conn
	sl.conn = nil
	sl.mu.Unlock()

	if conn == nil {
		return ErrNoConnection
	}

	conn.Cancel()
	if err := conn.Sink.Close(); err != nil {
		return errors.Wrap(err, "stopping sink")
	}

	s.logger.Info("left voice channel", zap.Uint64("guild", guildID))
	return nil
}

// Play runs the guild's playback loop: dequeue a track, stream it to the
// sink, repeat until the queue is empty or playback is cancelled. The loop
// observes both the caller's ctx and the connection's stop signal. The
// request must come from the channel the connection is bound to; exactly
// one loop may run per guild, and a second call returns ErrAlreadyPlaying.
func (s *Service) Play(ctx context.Context, guildID uint64, channelID string) error {
	sl := s.slot(guildID)
	sl.mu.Lock()
	conn := sl.conn
	sl.mu.Unlock()

	if conn == nil {
		return ErrNoConnection
	}
	if conn.ChannelID != channelID {
		return ErrWrongChannel
	}
	if !conn.setPlaying(true) {
		return ErrAlreadyPlaying
	}
	defer conn.setPlaying(false)

	// Merge the caller's cancellation with the connection's stop signal so
	// either terminates the loop.
	merged, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-conn.stopSignal():
			cancel()
		case <-merged.Done():
		}
	}()

	for {
		select {
		case <-merged.Done():
			s.logger.Info("playback cancelled", zap.Uint64("guild", guildID))
			return nil
		default:
		}

		stream, err := s.queue.Dequeue(merged, guildID)
		if err != nil {
			return errors.Wrap(err, "dequeuing track")
		}
		if stream == nil {
			s.logger.Info("queue drained", zap.Uint64("guild", guildID))
			return nil
		}

		if err := conn.Sink.Play(merged, stream); err != nil {
			if merged.Err() != nil {
				// Stopped mid-track; the session stays joined.
				s.logger.Info("playback cancelled", zap.Uint64("guild", guildID))
				return nil
			}
			return errors.Wrap(err, "streaming to sink")
		}
	}
}

// Stop interrupts the guild's running playback loop, if any, and arms a
// fresh cancellation source so a later Play proceeds normally. Errors if no
// connection exists or the request comes from a different voice channel than
// the one the connection is bound to.
func (s *Service) Stop(guildID uint64, channelID string) error {
	sl := s.slot(guildID)
	sl.mu.Lock()
	conn := sl.conn
	sl.mu.Unlock()

	if conn == nil {
		return ErrNoConnection
	}
	if conn.ChannelID != channelID {
		return ErrWrongChannel
	}

	conn.Cancel()
	s.logger.Info("playback stop requested", zap.Uint64("guild", guildID))
	return nil
}
