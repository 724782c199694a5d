package audio

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// VoiceDialer joins Discord voice channels and wraps the resulting
// connections in VoiceSinks.
type VoiceDialer struct {
	session *discordgo.Session
	logger  *zap.Logger
}

// NewVoiceDialer creates a VoiceDialer on an open Discord session.
func NewVoiceDialer(session *discordgo.Session, logger *zap.Logger) *VoiceDialer {
	return &VoiceDialer{
		session: session,
		logger:  logger,
	}
}

// Dial joins the voice channel and waits for the connection to become ready.
func (d *VoiceDialer) Dial(guildID uint64, channelID string) (Sink, error) {
	guild := strconv.FormatUint(guildID, 10)

	conn, err := d.session.ChannelVoiceJoin(guild, channelID, false, true)
	if err != nil {
		return nil, errors.Wrap(err, "joining voice channel")
	}

	// The gateway reports readiness asynchronously after the join.
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			conn.Disconnect()
			return nil, errors.New("voice connection timed out")
		case <-ticker.C:
			if conn.Ready {
				d.logger.Debug("voice connection ready",
					zap.String("guild", guild),
					zap.String("channel", channelID))
				return NewVoiceSink(conn, d.logger)
			}
		}
	}
}

// UserVoiceChannel finds the voice channel the given user currently occupies
// in the guild, returning its channel ID.
func UserVoiceChannel(session *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := session.State.Guild(guildID)
	if err != nil {
		return "", errors.Wrap(err, "looking up guild state")
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, nil
		}
	}

	return "", errors.New("user is not in a voice channel")
}
