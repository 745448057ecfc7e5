package backend

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	ID       uuid.UUID
	Nickname string
	Hostname string
	Username string
	Password string
}

type AppConfig struct {
	NotificationDurationSeconds int
	MaxCacheSizeMB              int
}

type PlaybackConfig struct {
	Volume     float64
	RepeatMode string
}

type ScrobbleConfig struct {
	Enabled              bool
	ThresholdTimeSeconds int
	ThresholdPercent     int
}

type LibraryConfig struct {
	FirstPageSize  int
	AlbumBatchSize int
}

type Config struct {
	Application AppConfig
	Server      ServerConfig
	Playback    PlaybackConfig
	Scrobbling  ScrobbleConfig
	Library     LibraryConfig
}

func DefaultConfig() *Config {
	return &Config{
		Application: AppConfig{
			NotificationDurationSeconds: 3,
			MaxCacheSizeMB:              30,
		},
		Server: ServerConfig{
			ID:       uuid.New(),
			Nickname: "My Server",
		},
		Playback: PlaybackConfig{
			Volume:     1.0,
			RepeatMode: "None",
		},
		Scrobbling: ScrobbleConfig{
			Enabled:              true,
			ThresholdTimeSeconds: 240,
			ThresholdPercent:     50,
		},
		Library: LibraryConfig{
			FirstPageSize:  10,
			AlbumBatchSize: 100,
		},
	}
}

func ReadConfigFile(filepath string) (*Config, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := DefaultConfig()
	if err := toml.NewDecoder(f).Decode(c); err != nil {
		return nil, err
	}
	return c, nil
}

var writeLock sync.Mutex

func (c *Config) WriteConfigFile(filepath string) error {
	if !writeLock.TryLock() {
		return nil // another write in progress
	}
	defer writeLock.Unlock()

	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	os.WriteFile(filepath, b, 0644)

	return nil
}
