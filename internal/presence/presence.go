package presence

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Manager updates the bot's presence to reflect playback.
type Manager struct {
	session *discordgo.Session
	logger  *zap.Logger
}

// NewManager creates a presence manager on the given session.
func NewManager(session *discordgo.Session, logger *zap.Logger) *Manager {
	return &Manager{
		session: session,
		logger:  logger,
	}
}

// UpdateTrack sets the bot's activity to the given track title.
func (m *Manager) UpdateTrack(title string) {
	status := discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name: title,
				Type: discordgo.ActivityTypeListening,
			},
		},
	}
	if err := m.session.UpdateStatusComplex(status); err != nil {
		m.logger.Warn("failed to update presence", zap.Error(err))
	}
}

// Clear resets the bot's activity.
func (m *Manager) Clear() {
	status := discordgo.UpdateStatusData{Status: "online"}
	if err := m.session.UpdateStatusComplex(status); err != nil {
		m.logger.Warn("failed to clear presence", zap.Error(err))
	}
}
