package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	AppPort  string `env:"APP_PORT" env-default:"8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	DatabaseDSN string `env:"DATABASE_DSN" env-required:"true"`

	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL  string `env:"DISCORD_REDIRECT_URL"`
	DiscordAPIBaseURL   string `env:"DISCORD_API_BASE_URL" env-default:"https://discord.com/api/v10"`

	// SessionTTL bounds the validity window of locally issued sessions.
	SessionTTL time.Duration `env:"SESSION_TTL" env-default:"1h"`

	// InstanceID discriminates concurrently running processes so that
	// locally minted uids never collide across instances.
	InstanceID int64 `env:"SNOWFLAKE_INSTANCE_ID" env-default:"0"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
