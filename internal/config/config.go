package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/natelatchaw/Jam/pkg/process"
)

// Config is the full application configuration, read from config.yaml with
// environment variable overrides.
type Config struct {
	Discord DiscordConfig   `mapstructure:"discord"`
	Limiter LimiterConfig   `mapstructure:"limiter"`
	YtDlp   process.Options `mapstructure:"ytdlp"`
	FFmpeg  process.Options `mapstructure:"ffmpeg"`
}

type DiscordConfig struct {
	Token  string `mapstructure:"token"`
	Prefix string `mapstructure:"prefix"`
}

type LimiterConfig struct {
	// Cooldown is the minimum number of seconds between accepted commands
	// from one user.
	Cooldown int `mapstructure:"cooldown"`
}

// Load reads configuration from .env, config.yaml and the environment.
// A missing config file is fine as long as the token is set.
func Load() (*Config, error) {
	// Load .env into the environment first so viper's env lookup sees it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("discord.prefix", "!")
	v.SetDefault("limiter.cooldown", 5)
	v.SetDefault("ytdlp.filename", "yt-dlp")
	v.SetDefault("ytdlp.path", ".")
	v.SetDefault("ytdlp.recursive", false)
	v.SetDefault("ffmpeg.filename", "ffmpeg")
	v.SetDefault("ffmpeg.path", ".")
	v.SetDefault("ffmpeg.recursive", false)

	v.SetEnvPrefix("jam")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("discord.token", "DISCORD_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if cfg.Discord.Token == "" {
		return nil, errors.New("discord token is not set")
	}

	return cfg, nil
}
