package levelbot

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/guildxp/levelbot/levelbot/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log LogConfig         `toml:"log"`
	Bot BotConfig         `toml:"bot"`
	DB  database.DBConfig `toml:"db"`
	XP  XPConfig          `toml:"xp"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// XPConfig controls how member activity converts to experience.
//
// MessageCooldownSeconds is declared configuration only: the award path does
// not check it. The original system shipped with the same setting unenforced
// and product has not clarified whether enforcement is wanted, so it stays a
// declared no-op rather than silently gaining teeth.
type XPConfig struct {
	PerMessage             int64          `toml:"per_message"`
	PerVoiceMinute         int64          `toml:"per_voice_minute"`
	MessageCooldownSeconds int            `toml:"message_cooldown_seconds"`
	SuccessChannels        []snowflake.ID `toml:"success_channels"`
	ApexRole               snowflake.ID   `toml:"apex_role"`
	Timezone               string         `toml:"timezone"`
}
