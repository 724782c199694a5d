package commands

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/internal/presence"
	"github.com/natelatchaw/Jam/pkg/audio"
)

// Commands bundles the chat command implementations with the services they
// drive.
type Commands struct {
	sessions *audio.Service
	tracks   *audio.Queue
	resolver *audio.Resolver
	presence *presence.Manager
	logger   *zap.Logger
}

// New wires up the command set.
func New(sessions *audio.Service, tracks *audio.Queue, resolver *audio.Resolver, presence *presence.Manager, logger *zap.Logger) *Commands {
	return &Commands{
		sessions: sessions,
		tracks:   tracks,
		resolver: resolver,
		presence: presence,
		logger:   logger,
	}
}

// parseGuildID converts a discordgo guild id to the uint64 keys the audio
// services use.
func parseGuildID(m *discordgo.MessageCreate) (uint64, error) {
	return strconv.ParseUint(m.GuildID, 10, 64)
}

func (c *Commands) sendEmbed(s *discordgo.Session, channelID, title, description string, color int) {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		c.logger.Warn("failed to send embed", zap.Error(err))
	}
}
