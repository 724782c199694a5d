package audio

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/pkg/process"
)

// Transcoder output is fixed: 2-channel, 48 kHz, signed 16-bit little-endian
// PCM. The voice sink consumes exactly this format.
var transcodeArgs = []string{
	"-hide_banner",
	"-loglevel", "warning",
	"-i", "pipe:0",
	"-ac", "2",
	"-f", "s16le",
	"-ar", "48000",
	"pipe:1",
}

// Downloader turns track metadata into PCM audio by piping the extractor's
// raw output through the transcoder.
type Downloader struct {
	extractor  *process.Service
	transcoder *process.Service
	logger     *zap.Logger
}

// NewDownloader creates a Downloader using the given extractor (yt-dlp) and
// transcoder (ffmpeg) services.
func NewDownloader(extractor, transcoder *process.Service, logger *zap.Logger) *Downloader {
	return &Downloader{
		extractor:  extractor,
		transcoder: transcoder,
		logger:     logger,
	}
}

// Stream spawns the extractor against the track's source URI, couples it to a
// transcoder process, and returns the transcoded PCM rewound to its start.
func (d *Downloader) Stream(ctx context.Context, item *Metadata) (io.Reader, error) {
	if item.Source == "" {
		return nil, errors.New("track metadata has no source URI")
	}

	source, err := d.extractor.Command(ctx, item.Source, "--output", "-")
	if err != nil {
		return nil, errors.Wrap(err, "spawning extractor")
	}

	destination, err := d.transcoder.Command(ctx, transcodeArgs...)
	if err != nil {
		source.Kill()
		source.Wait()
		return nil, errors.Wrap(err, "spawning transcoder")
	}

	d.logger.Debug("piping extractor output to transcoder", zap.String("source", item.Source))
	audio, err := process.Pipe(ctx, source, destination, d.logger)
	if err != nil {
		return nil, err
	}
	if audio.Len() == 0 {
		return nil, errors.New("transcoder produced no output")
	}

	d.logger.Info("track downloaded",
		zap.String("title", item.Title),
		zap.Int("bytes", audio.Len()))
	return bytes.NewReader(audio.Bytes()), nil
}
