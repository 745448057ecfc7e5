package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"time"

	"github.com/20after4/configdir"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/roceb/sonicrust/backend/mediaprovider"
	"github.com/roceb/sonicrust/backend/mediaprovider/subsonic"
	"github.com/roceb/sonicrust/backend/player/mpv"
)

const (
	AppName    = "sonicrust"
	configFile = "config.toml"

	tickInterval = 100 * time.Millisecond
)

// ErrNoServerConfigured is returned by StartupApp when no config file
// exists yet. A default one is written for the user to fill in.
var ErrNoServerConfigured = errors.New("no server configured")

// App owns the process-wide resources and wires the components together.
type App struct {
	Config       *Config
	Provider     mediaprovider.MediaProvider
	LocalPlayer  *mpv.Player
	State        *SharedState
	CommandBus   *CommandBus
	Orchestrator *Orchestrator
	MPRIS        *MPRISHandler

	configDir string
}

func StartupApp() (*App, error) {
	confDir := configdir.LocalConfig(AppName)
	configdir.MakePath(confDir)

	log.Printf("Starting %s...", AppName)
	log.Printf("Using config dir: %s", confDir)

	a := &App{configDir: confDir}
	if err := a.readConfig(); err != nil {
		return nil, err
	}

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = nil
	srv := a.Config.Server
	provider, err := subsonic.Connect(httpClient.StandardClient(), srv.Hostname, srv.Username, srv.Password, AppName)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", srv.Nickname, err)
	}
	a.Provider = provider

	a.LocalPlayer = mpv.NewWithClientName(AppName)
	if err := a.LocalPlayer.Init(a.Config.Application.MaxCacheSizeMB); err != nil {
		return nil, fmt.Errorf("starting audio backend: %w", err)
	}

	a.State = NewSharedState()
	a.CommandBus = NewCommandBus()
	a.Orchestrator = NewOrchestrator(a.LocalPlayer, a.Provider, a.CommandBus, a.State, a.Config)
	a.MPRIS = NewMPRISHandler(AppName, a.Orchestrator, a.CommandBus, a.State)
	a.MPRIS.Start()

	lib := a.Config.Library
	a.Orchestrator.StartLibraryLoad(lib.FirstPageSize, lib.AlbumBatchSize)

	return a, nil
}

// readConfig loads the config file, writing a fresh default one and
// returning ErrNoServerConfigured if it does not exist yet.
func (a *App) readConfig() error {
	cfgPath := a.configFilePath()
	if _, err := os.Stat(cfgPath); err != nil {
		cfg := DefaultConfig()
		if err := cfg.WriteConfigFile(cfgPath); err != nil {
			return err
		}
		log.Printf("Wrote default config to %s", cfgPath)
		return ErrNoServerConfigured
	}
	cfg, err := ReadConfigFile(cfgPath)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	a.Config = cfg
	return nil
}

func (a *App) configFilePath() string {
	return path.Join(a.configDir, configFile)
}

// Run drives the orchestrator's tick loop until ctx is canceled.
func (a *App) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Orchestrator.Tick()
		}
	}
}

func (a *App) Shutdown() {
	a.MPRIS.Shutdown()
	a.Orchestrator.Shutdown()
	a.Config.Playback.Volume = a.State.Read().Volume
	switch a.Orchestrator.RepeatMode() {
	case RepeatOne:
		a.Config.Playback.RepeatMode = "One"
	case RepeatAll:
		a.Config.Playback.RepeatMode = "All"
	default:
		a.Config.Playback.RepeatMode = "None"
	}
	if err := a.Config.WriteConfigFile(a.configFilePath()); err != nil {
		log.Printf("error writing config file: %v", err)
	}
}
