package audio

import (
	"context"
	"io"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"layeh.com/gopus"
)

const (
	sampleRate = 48000
	channels   = 2
	// frameSamples is 20ms of audio per channel at 48 kHz.
	frameSamples = 960
	// frameBytes is one frame of interleaved s16le PCM.
	frameBytes = frameSamples * channels * 2
)

// Sink consumes 48 kHz stereo s16le PCM and plays it somewhere.
type Sink interface {
	// Play streams one track's PCM to the sink, honoring ctx cancellation.
	Play(ctx context.Context, pcm io.Reader) error
	// Close shuts the sink down and releases its underlying connection.
	Close() error
}

// VoiceSink plays PCM into a Discord voice connection, encoding 20ms frames
// to Opus on the way.
type VoiceSink struct {
	conn    *discordgo.VoiceConnection
	encoder *gopus.Encoder
	logger  *zap.Logger
}

// NewVoiceSink wraps an established voice connection in a Sink.
func NewVoiceSink(conn *discordgo.VoiceConnection, logger *zap.Logger) (*VoiceSink, error) {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, errors.Wrap(err, "creating opus encoder")
	}
	encoder.SetBitrate(128000)

	return &VoiceSink{
		conn:    conn,
		encoder: encoder,
		logger:  logger,
	}, nil
}

// Play reads frame-sized PCM chunks from pcm, encodes them and feeds the
// voice connection until the stream ends or ctx is cancelled.
func (s *VoiceSink) Play(ctx context.Context, pcm io.Reader) error {
	s.conn.Speaking(true)
	defer s.conn.Speaking(false)

	buf := make([]byte, frameBytes)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := io.ReadFull(pcm, buf)
		if err == io.EOF {
			return nil
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return errors.Wrap(err, "reading pcm")
		}

		samples := bytesToInt16(buf[:n])
		if len(samples) < frameSamples*channels {
			// Final short frame: pad with silence.
			padded := make([]int16, frameSamples*channels)
			copy(padded, samples)
			samples = padded
		}

		frame, encErr := s.encoder.Encode(samples, frameSamples, frameBytes)
		if encErr != nil {
			return errors.Wrap(encErr, "encoding opus frame")
		}

		select {
		case s.conn.OpusSend <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err == io.ErrUnexpectedEOF {
			return nil
		}
	}
}

// Close stops speaking and disconnects from the voice channel.
func (s *VoiceSink) Close() error {
	s.conn.Speaking(false)
	return s.conn.Disconnect()
}

func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}
