package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"

	"github.com/franz/faceless-shorts/internal/config"
	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/metadata"
	"github.com/franz/faceless-shorts/internal/pipeline"
	"github.com/franz/faceless-shorts/internal/platform/youtube"
	"github.com/franz/faceless-shorts/internal/render"
	"github.com/franz/faceless-shorts/internal/report"
	"github.com/franz/faceless-shorts/internal/score"
	"github.com/franz/faceless-shorts/internal/store"
	"github.com/franz/faceless-shorts/internal/tracker"
	"github.com/franz/faceless-shorts/internal/util"
)

// loadConfig decodes the global viper state into a validated Config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// eventLogLevel maps --quiet/--verbose onto the event log level
func eventLogLevel() report.EventLevel {
	switch {
	case viper.GetBool("quiet"):
		return report.LevelWarning // Only warnings and errors
	case viper.GetBool("verbose"):
		return report.LevelDebug // Everything
	default:
		return report.LevelInfo
	}
}

// openEventLogger creates the run's event log under the artifacts directory.
// Failure degrades to a null logger.
func openEventLogger(cfg *config.Config) *report.EventLogger {
	logger, err := report.NewEventLogger(cfg.Paths.Artifacts, eventLogLevel())
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	util.DebugLog("Event log: %s (run %s)", logger.Path(), logger.RunID())
	return logger
}

// runLock serialises mutating commands across processes
type runLock struct {
	lock *flock.Flock
}

// acquireRunLock takes the advisory <ledger>.lock without waiting
func acquireRunLock(ledgerPath string) (*runLock, error) {
	if err := util.RetryableMkdirAll(filepath.Dir(ledgerPath), 0755, nil); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	lock := flock.New(ledgerPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrLocked, lock.Path())
	}
	return &runLock{lock: lock}, nil
}

func (l *runLock) Release() {
	if err := l.lock.Unlock(); err != nil {
		util.WarnLog("Failed to release run lock: %v", err)
	}
}

// openHistory opens the history database. An empty path disables history.
func openHistory(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := util.RetryableMkdirAll(dir, 0755, nil); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

func newLedger(cfg *config.Config) *ledger.Store {
	return ledger.New(&ledger.Config{Path: cfg.Ledger})
}

func newEngine(cfg *config.Config, logger *report.EventLogger) *score.Engine {
	return score.NewEngine(&score.EngineConfig{
		LockScore: cfg.Thumbnails.LockScore,
		Archive:   score.NewArchive(cfg.TopPerformers, nil),
		Logger:    logger,
	})
}

func newYouTube(ctx context.Context, cfg *config.Config) (*youtube.Client, error) {
	if err := cfg.Secrets.RequireYouTube(); err != nil {
		return nil, err
	}
	return youtube.New(ctx, &youtube.Config{
		Credentials: youtube.Credentials{
			ClientID:     cfg.Secrets.YTClientID,
			ClientSecret: cfg.Secrets.YTClientSecret,
			RefreshToken: cfg.Secrets.YTRefreshToken,
		},
	})
}

func newTracker(cfg *config.Config, fetcher tracker.StatsFetcher, history *store.Store, logger *report.EventLogger) *tracker.Tracker {
	tcfg := &tracker.Config{
		Fetcher:     fetcher,
		GrowthAlert: cfg.Tracking.GrowthAlert,
		Logger:      logger,
	}
	// A nil *store.Store must not become a non-nil interface
	if history != nil {
		tcfg.History = history
	}
	return tracker.New(tcfg)
}

func newRenderStage(cfg *config.Config) (render.Speaker, render.Renderer, metadata.Generator, error) {
	speaker, err := render.NewElevenLabs(&render.ElevenLabsConfig{
		APIKey:          cfg.Secrets.ElevenLabsKey,
		Voice:           cfg.ElevenLabs.Voice,
		Model:           cfg.ElevenLabs.Model,
		Stability:       cfg.ElevenLabs.Stability,
		SimilarityBoost: cfg.ElevenLabs.SimilarityBoost,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	renderer := render.NewFFmpeg(&render.FFmpegConfig{
		Settings: render.VideoSettings{
			Width:        cfg.Video.Width,
			Height:       cfg.Video.Height,
			FPS:          cfg.Video.FPS,
			Codec:        cfg.Video.Codec,
			Bitrate:      cfg.Video.Bitrate,
			AudioBitrate: cfg.Video.AudioBitrate,
			SampleRate:   cfg.Video.SampleRate,
			Channels:     cfg.Video.Channels,
		},
		Probe: true,
	})

	gen, err := metadata.NewOpenAI(&metadata.Config{
		APIKey:      cfg.Secrets.OpenAIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return speaker, renderer, gen, nil
}

func pipelineDirs(cfg *config.Config) pipeline.Dirs {
	return pipeline.Dirs{
		Scripts:    cfg.Paths.Scripts,
		Audio:      cfg.Paths.Audio,
		Video:      cfg.Paths.Video,
		Thumbnails: cfg.Paths.Thumbnails,
	}
}

// newRand seeds a per-process generator for thumbnail selection
func newRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed^uint64(os.Getpid())))
}

// reportErrors logs collected per-item errors and returns a summary error
func reportErrors(stage string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	for _, err := range errs {
		util.ErrorLog("%s: %v", stage, err)
	}
	return fmt.Errorf("%s finished with %d error(s): %w", stage, len(errs), errors.Join(errs...))
}
