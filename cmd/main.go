package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/natelatchaw/Jam/internal/commands"
	"github.com/natelatchaw/Jam/internal/config"
	"github.com/natelatchaw/Jam/internal/handlers"
	"github.com/natelatchaw/Jam/internal/presence"
	"github.com/natelatchaw/Jam/pkg/audio"
	"github.com/natelatchaw/Jam/pkg/process"
	"github.com/natelatchaw/Jam/pkg/ratelimit"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to create Discord session", zap.Error(err))
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	extractor := process.NewService(cfg.YtDlp, logger)
	transcoder := process.NewService(cfg.FFmpeg, logger)

	resolver := audio.NewResolver(extractor, logger)
	downloader := audio.NewDownloader(extractor, transcoder, logger)
	tracks := audio.NewQueue(downloader, logger)

	dialer := audio.NewVoiceDialer(dg, logger)
	sessions := audio.NewService(dialer, tracks, logger)

	limiter := ratelimit.New(time.Duration(cfg.Limiter.Cooldown)*time.Second, logger)
	presenceManager := presence.NewManager(dg, logger)

	cmds := commands.New(sessions, tracks, resolver, presenceManager, logger)
	handler := handlers.NewMessageHandler(cfg.Discord.Prefix, limiter, cmds, logger)
	dg.AddHandler(handler.Handle)

	if err := dg.Open(); err != nil {
		logger.Fatal("failed to open Discord session", zap.Error(err))
	}

	logger.Info("bot is running, press CTRL-C to exit")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	dg.Close()
}
