package handlers

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/internal/commands"
	"github.com/natelatchaw/Jam/pkg/ratelimit"
)

// MessageHandler validates inbound messages, gates them through the rate
// limiter and dispatches commands.
type MessageHandler struct {
	prefix   string
	limiter  *ratelimit.Limiter
	commands *commands.Commands
	logger   *zap.Logger
}

// NewMessageHandler wires the handler up. prefix is the command prefix, e.g. "!".
func NewMessageHandler(prefix string, limiter *ratelimit.Limiter, cmds *commands.Commands, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		prefix:   prefix,
		limiter:  limiter,
		commands: cmds,
		logger:   logger,
	}
}

// Handle is registered on the Discord session for message create events.
func (h *MessageHandler) Handle(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore the bot's own messages and other bots.
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	// Non-commands are dropped silently.
	if !strings.HasPrefix(m.Content, h.prefix) {
		h.logger.Debug("message does not begin with the prefix",
			zap.String("prefix", h.prefix))
		return
	}

	userID, err := strconv.ParseUint(m.Author.ID, 10, 64)
	if err != nil {
		h.logger.Debug("unparseable author id", zap.String("author", m.Author.ID))
		return
	}

	// Every command passes the admission gate; rejected commands are
	// dropped, not queued.
	if err := h.limiter.Validate(userID, m.Timestamp); err != nil {
		var cooldown *ratelimit.CooldownError
		if errors.As(err, &cooldown) {
			if _, serr := s.ChannelMessageSendReply(m.ChannelID, err.Error(), m.Reference()); serr != nil {
				h.logger.Warn("failed to send rate limit reply", zap.Error(serr))
			}
		}
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, h.prefix))
	if len(fields) == 0 {
		return
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	h.logger.Debug("dispatching command",
		zap.String("command", command),
		zap.String("author", m.Author.Username))

	switch command {
	case "play", "p":
		h.commands.Play(s, m, args)
	case "queue", "q":
		if len(args) == 0 {
			h.commands.List(s, m)
			return
		}
		h.commands.Enqueue(s, m, args)
	case "stop":
		h.commands.Stop(s, m)
	case "clear":
		h.commands.Clear(s, m)
	case "leave":
		h.commands.Leave(s, m)
	case "help", "h":
		h.commands.Help(s, m, h.prefix)
	default:
		h.logger.Debug("unknown command", zap.String("command", command))
	}
}
