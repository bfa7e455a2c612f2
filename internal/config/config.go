package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/franz/faceless-shorts/internal/util"
	"github.com/spf13/viper"
)

// Config is the typed view of the shorts configuration. Keys map 1:1 onto
// the YAML file, SHORTS_* environment variables and bound flags via viper.
type Config struct {
	Paths         Paths            `mapstructure:"paths" yaml:"paths"`
	Ledger        string           `mapstructure:"ledger" yaml:"ledger"`
	TopPerformers string           `mapstructure:"top_performers" yaml:"top_performers"`
	HistoryDB     string           `mapstructure:"history_db" yaml:"history_db"`
	Thumbnails    ThumbnailConfig  `mapstructure:"thumbnails" yaml:"thumbnails"`
	Tracking      TrackingConfig   `mapstructure:"tracking" yaml:"tracking"`
	Video         VideoConfig      `mapstructure:"video" yaml:"video"`
	Upload        UploadConfig     `mapstructure:"upload" yaml:"upload"`
	OpenAI        OpenAIConfig     `mapstructure:"openai" yaml:"openai"`
	ElevenLabs    ElevenLabsConfig `mapstructure:"elevenlabs" yaml:"elevenlabs"`
	Secrets       Secrets          `mapstructure:"secrets" yaml:"secrets"`
}

// Paths are the working directories of the pipeline
type Paths struct {
	Scripts    string `mapstructure:"scripts" yaml:"scripts"`
	Audio      string `mapstructure:"audio" yaml:"audio"`
	Video      string `mapstructure:"video" yaml:"video"`
	Thumbnails string `mapstructure:"thumbnails" yaml:"thumbnails"`
	Artifacts  string `mapstructure:"artifacts" yaml:"artifacts"`
}

type ThumbnailConfig struct {
	MaxReuse  int     `mapstructure:"max_reuse" yaml:"max_reuse"`
	LockScore float64 `mapstructure:"lock_score" yaml:"lock_score"`
}

type TrackingConfig struct {
	GrowthAlert float64 `mapstructure:"growth_alert" yaml:"growth_alert"`
}

type VideoConfig struct {
	Width        int    `mapstructure:"width" yaml:"width"`
	Height       int    `mapstructure:"height" yaml:"height"`
	FPS          int    `mapstructure:"fps" yaml:"fps"`
	Codec        string `mapstructure:"codec" yaml:"codec"`
	Bitrate      string `mapstructure:"bitrate" yaml:"bitrate"`
	AudioBitrate string `mapstructure:"audio_bitrate" yaml:"audio_bitrate"`
	SampleRate   int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels     int    `mapstructure:"channels" yaml:"channels"`
	Background   string `mapstructure:"background" yaml:"background"`
}

type UploadConfig struct {
	CategoryID string `mapstructure:"category_id" yaml:"category_id"`
	Privacy    string `mapstructure:"privacy" yaml:"privacy"`
}

type OpenAIConfig struct {
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type ElevenLabsConfig struct {
	Voice           string  `mapstructure:"voice" yaml:"voice"`
	Model           string  `mapstructure:"model" yaml:"model"`
	Stability       float64 `mapstructure:"stability" yaml:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity_boost" yaml:"similarity_boost"`
}

// Secrets come from the environment (or .env) only
type Secrets struct {
	OpenAIKey      string `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	ElevenLabsKey  string `mapstructure:"elevenlabs_api_key" yaml:"elevenlabs_api_key"`
	YTClientID     string `mapstructure:"yt_client_id" yaml:"yt_client_id"`
	YTClientSecret string `mapstructure:"yt_client_secret" yaml:"yt_client_secret"`
	YTRefreshToken string `mapstructure:"yt_refresh_token" yaml:"yt_refresh_token"`
}

var defaults = map[string]interface{}{
	"paths.scripts":    "scripts",
	"paths.audio":      "audio",
	"paths.video":      "videos",
	"paths.thumbnails": "thumbnails",
	"paths.artifacts":  "artifacts",
	"ledger":           filepath.Join("videos", "metadata.jsonl"),
	"top_performers":   filepath.Join("thumbnails", "top_performers.json"),
	"history_db":       "shorts-history.db",

	"thumbnails.max_reuse":  2,
	"thumbnails.lock_score": 4.5,
	"tracking.growth_alert": 50.0,

	"video.width":         1080,
	"video.height":        1920,
	"video.fps":           30,
	"video.codec":         "libx264",
	"video.bitrate":       "4000k",
	"video.audio_bitrate": "192k",
	"video.sample_rate":   44100,
	"video.channels":      2,
	"video.background":    filepath.Join("thumbnails", "thumb_001_A.png"),

	"upload.category_id": "28",
	"upload.privacy":     "public",

	"openai.model":       "gpt-4o-mini",
	"openai.temperature": 0.7,
	"openai.max_tokens":  500,

	"elevenlabs.voice":            "Laura",
	"elevenlabs.model":            "eleven_multilingual_v2",
	"elevenlabs.stability":        0.5,
	"elevenlabs.similarity_boost": 0.75,
}

var secretEnv = map[string]string{
	"secrets.openai_api_key":     "OPENAI_API_KEY",
	"secrets.elevenlabs_api_key": "ELEVENLABS_API_KEY",
	"secrets.yt_client_id":       "YT_CLIENT_ID",
	"secrets.yt_client_secret":   "YT_CLIENT_SECRET",
	"secrets.yt_refresh_token":   "YT_REFRESH_TOKEN",
}

// SetDefaults registers defaults and secret env bindings on v
func SetDefaults(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for key, env := range secretEnv {
		v.BindEnv(key, env)
	}
}

// Load decodes v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	cfg, err := Load(viper.New())
	if err != nil {
		panic(fmt.Sprintf("built-in defaults are invalid: %v", err))
	}
	return cfg
}

// Validate checks value ranges. All violations are reported together.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Ledger != "", "ledger path is empty")
	check(c.TopPerformers != "", "top_performers path is empty")
	check(c.Thumbnails.MaxReuse >= 1, "thumbnails.max_reuse must be >= 1, got %d", c.Thumbnails.MaxReuse)
	check(c.Thumbnails.LockScore > 0, "thumbnails.lock_score must be > 0, got %v", c.Thumbnails.LockScore)
	check(c.Tracking.GrowthAlert > 0, "tracking.growth_alert must be > 0, got %v", c.Tracking.GrowthAlert)
	check(c.Video.Width >= 640 && c.Video.Width <= 7680, "video.width must be in 640..7680, got %d", c.Video.Width)
	check(c.Video.Height >= 480 && c.Video.Height <= 4320, "video.height must be in 480..4320, got %d", c.Video.Height)
	check(c.Video.FPS >= 1 && c.Video.FPS <= 120, "video.fps must be in 1..120, got %d", c.Video.FPS)
	check(c.OpenAI.Temperature >= 0 && c.OpenAI.Temperature <= 1, "openai.temperature must be in 0..1, got %v", c.OpenAI.Temperature)
	check(c.OpenAI.MaxTokens >= 1 && c.OpenAI.MaxTokens <= 4000, "openai.max_tokens must be in 1..4000, got %d", c.OpenAI.MaxTokens)
	check(c.ElevenLabs.Stability >= 0 && c.ElevenLabs.Stability <= 1, "elevenlabs.stability must be in 0..1, got %v", c.ElevenLabs.Stability)
	check(c.ElevenLabs.SimilarityBoost >= 0 && c.ElevenLabs.SimilarityBoost <= 1, "elevenlabs.similarity_boost must be in 0..1, got %v", c.ElevenLabs.SimilarityBoost)

	switch c.Upload.Privacy {
	case "public", "unlisted", "private":
	default:
		errs = append(errs, fmt.Errorf("upload.privacy must be public, unlisted or private, got %q", c.Upload.Privacy))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", util.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Redacted returns a copy safe to print, with secrets masked
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	out.Secrets = Secrets{
		OpenAIKey:      mask(c.Secrets.OpenAIKey),
		ElevenLabsKey:  mask(c.Secrets.ElevenLabsKey),
		YTClientID:     mask(c.Secrets.YTClientID),
		YTClientSecret: mask(c.Secrets.YTClientSecret),
		YTRefreshToken: mask(c.Secrets.YTRefreshToken),
	}
	return &out
}

// RequireYouTube reports missing upload credentials
func (s Secrets) RequireYouTube() error {
	if s.YTClientID == "" || s.YTClientSecret == "" || s.YTRefreshToken == "" {
		return fmt.Errorf("%w: YT_CLIENT_ID, YT_CLIENT_SECRET and YT_REFRESH_TOKEN are required", util.ErrMissingCredentials)
	}
	return nil
}
