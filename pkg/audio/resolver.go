package audio

import (
	"context"
	"encoding/json"
	"strings"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/pkg/process"
)

// ErrNoResults reports that a query resolved to nothing playable.
var ErrNoResults = errors.New("no results found")

// Resolver turns a free-text query or URL into track metadata. Direct
// YouTube URLs are resolved with the client library; anything else goes
// through the extractor's search with structured JSON output.
type Resolver struct {
	extractor *process.Service
	client    youtube.Client
	logger    *zap.Logger
}

// NewResolver creates a Resolver backed by the extractor service.
func NewResolver(extractor *process.Service, logger *zap.Logger) *Resolver {
	return &Resolver{
		extractor: extractor,
		logger:    logger,
	}
}

// Resolve produces metadata for query. Returns ErrNoResults when the query
// matches nothing.
func (r *Resolver) Resolve(ctx context.Context, query string) (*Metadata, error) {
	if id, err := youtube.ExtractVideoID(query); err == nil && isURL(query) {
		item, err := r.resolveVideo(ctx, id)
		if err == nil {
			return item, nil
		}
		// Fall through to the extractor; it handles URLs the client
		// library cannot.
		r.logger.Debug("client library resolution failed, falling back to extractor",
			zap.String("query", query), zap.Error(err))
	}
	return r.search(ctx, query)
}

func (r *Resolver) resolveVideo(ctx context.Context, id string) (*Metadata, error) {
	video, err := r.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, err
	}

	item := &Metadata{
		Title:       video.Title,
		Description: video.Description,
		Source:      "https://www.youtube.com/watch?v=" + video.ID,
	}
	if len(video.Thumbnails) > 0 {
		item.Thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	r.logger.Info("resolved track via client library", zap.String("title", item.Title))
	return item, nil
}

func (r *Resolver) search(ctx context.Context, query string) (*Metadata, error) {
	locator := query
	if !isURL(query) {
		locator = "ytsearch:" + query
	}

	proc, err := r.extractor.Command(ctx, locator, "--dump-json", "--no-playlist", "--output", "-")
	if err != nil {
		return nil, errors.Wrap(err, "spawning extractor")
	}

	output, err := process.Capture(ctx, proc, r.logger)
	if err != nil {
		var exit *process.ExitError
		if errors.As(err, &exit) {
			// The extractor exits non-zero when a search has no hits.
			return nil, ErrNoResults
		}
		return nil, errors.Wrap(err, "resolving metadata")
	}

	raw := strings.TrimSpace(output.String())
	if raw == "" {
		return nil, ErrNoResults
	}

	// One JSON object per line; a single result is requested, so decode the
	// first line only.
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}

	item := &Metadata{}
	if err := json.Unmarshal([]byte(raw), item); err != nil {
		return nil, errors.Wrap(err, "decoding extractor metadata")
	}
	if item.Source == "" {
		return nil, ErrNoResults
	}

	r.logger.Info("resolved track via extractor", zap.String("title", item.Title))
	return item, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
