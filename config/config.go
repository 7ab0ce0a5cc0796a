// Package config loads settings from an optional voicemail.yaml, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrUnknownProvider = errors.New("unknown provider")

const envPrefix = "VOICEMAIL"

type Config struct {
	STT          string        `mapstructure:"stt"`
	TTS          string        `mapstructure:"tts"`
	TTSCommand   string        `mapstructure:"tts_command"`
	TTSVoice     string        `mapstructure:"tts_voice"`
	Language     string        `mapstructure:"language"`
	RecordWindow time.Duration `mapstructure:"record_window"`
	Device       string        `mapstructure:"device"`
	LogPath      string        `mapstructure:"log_path"`
	Hotkey       bool          `mapstructure:"hotkey"`
	Announce     bool          `mapstructure:"announce"`
	Beep         bool          `mapstructure:"beep"`

	GroqAPIKey   string `mapstructure:"groq_api_key"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

var defaults = map[string]any{
	"stt":           "auto",
	"tts":           "auto",
	"tts_command":   "",
	"tts_voice":     "",
	"language":      "en",
	"record_window": 5 * time.Second,
	"device":        "",
	"log_path":      "",
	"hotkey":        true,
	"announce":      true,
	"beep":          true,
}

// LoadEnvFile reads KEY=value pairs into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

// Load reads the config file at path, or searches the working directory and
// the user config directory for voicemail.yaml when path is empty. Values
// from VOICEMAIL_* variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("groq_api_key", "GROQ_API_KEY")
	v.BindEnv("openai_api_key", "OPENAI_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("voicemail")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "voicemail"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.STT {
	case "", "auto", "groq", "openai":
	default:
		return fmt.Errorf("stt %q: %w", c.STT, ErrUnknownProvider)
	}
	switch c.TTS {
	case "", "auto", "openai", "command":
	default:
		return fmt.Errorf("tts %q: %w", c.TTS, ErrUnknownProvider)
	}
	if c.RecordWindow <= 0 {
		return fmt.Errorf("record_window must be positive, got %v", c.RecordWindow)
	}
	return nil
}
