package audio

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataDecode(t *testing.T) {
	// Trimmed shape of a yt-dlp --dump-json record.
	payload := `{
		"title": "Test Track",
		"thumbnail": "https://example.com/thumb.jpg",
		"description": "a description",
		"webpage_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"duration": 212,
		"uploader": "someone"
	}`

	var meta Metadata
	require.NoError(t, json.Unmarshal([]byte(payload), &meta))

	assert.Equal(t, "Test Track", meta.Title)
	assert.Equal(t, "https://example.com/thumb.jpg", meta.Thumbnail)
	assert.Equal(t, "a description", meta.Description)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", meta.Source)
}

func TestMetadataEmbed(t *testing.T) {
	meta := &Metadata{
		Title:       "Test Track",
		Thumbnail:   "https://example.com/thumb.jpg",
		Description: strings.Repeat("x", 200),
		Source:      "https://example.com/watch",
	}

	embed := meta.Embed("user#1234", 150)

	assert.Equal(t, "Test Track", embed.Title)
	assert.Equal(t, "https://example.com/watch", embed.URL)
	require.NotNil(t, embed.Image)
	assert.Equal(t, "https://example.com/thumb.jpg", embed.Image.URL)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Requested by user#1234", embed.Footer.Text)

	assert.Len(t, embed.Description, 150)
	assert.True(t, strings.HasSuffix(embed.Description, "..."))
}

func TestMetadataEmbedShortDescription(t *testing.T) {
	meta := &Metadata{Title: "Short", Description: "fits"}
	embed := meta.Embed("", 150)

	assert.Equal(t, "fits", embed.Description)
	assert.Nil(t, embed.Footer)
	assert.Nil(t, embed.Image)
}
