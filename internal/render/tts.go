package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/franz/faceless-shorts/internal/util"
)

const (
	// ElevenLabsBaseURL is the ElevenLabs API base URL
	ElevenLabsBaseURL = "https://api.elevenlabs.io"

	// UserAgent identifies this application to the TTS service
	UserAgent = "faceless-shorts/1.0 (https://github.com/franz/faceless-shorts)"
)

// ErrInvalidAudio means synthesized output is not a playable audio file
var ErrInvalidAudio = errors.New("invalid audio output")

// Speaker synthesizes narration for a script
type Speaker interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// ElevenLabsConfig holds TTS client configuration
type ElevenLabsConfig struct {
	APIKey          string
	Voice           string // voice name or id
	Model           string
	Stability       float64
	SimilarityBoost float64
	BaseURL         string
	HTTPClient      *http.Client
}

// ElevenLabs is a text-to-speech client for the ElevenLabs REST API
type ElevenLabs struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	voice      string
	model      string
	stability  float64
	similarity float64

	mu      sync.Mutex
	voiceID string
}

// NewElevenLabs creates a TTS client
func NewElevenLabs(cfg *ElevenLabsConfig) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs: %w", util.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ElevenLabsBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.Voice == "" {
		cfg.Voice = "Laura"
	}
	return &ElevenLabs{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		voice:      cfg.Voice,
		model:      cfg.Model,
		stability:  cfg.Stability,
		similarity: cfg.SimilarityBoost,
	}, nil
}

type voiceList struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
	} `json:"voices"`
}

// resolveVoice maps the configured voice name to an id, once per client
func (e *ElevenLabs) resolveVoice(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.voiceID != "" {
		return e.voiceID, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", e.baseURL+"/v1/voices", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	e.setHeaders(req, "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("voice list: unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var list voiceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("failed to decode voice list: %w", err)
	}
	for _, v := range list.Voices {
		if v.VoiceID == e.voice || strings.EqualFold(v.Name, e.voice) {
			util.DebugLog("ElevenLabs: voice %q is %s", e.voice, v.VoiceID)
			e.voiceID = v.VoiceID
			return e.voiceID, nil
		}
	}
	return "", fmt.Errorf("voice %q: %w", e.voice, util.ErrNotFound)
}

func (e *ElevenLabs) setHeaders(req *http.Request, accept string) {
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", accept)
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize writes MP3 narration for text to outPath
func (e *ElevenLabs) Synthesize(ctx context.Context, text, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("synthesize: empty text")
	}
	voiceID, err := e.resolveVoice(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       e.model,
		VoiceSettings: voiceSettings{Stability: e.stability, SimilarityBoost: e.similarity},
	})
	if err != nil {
		return err
	}

	urlStr := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=mp3_44100_128", e.baseURL, url.PathEscape(voiceID))
	req, err := http.NewRequestWithContext(ctx, "POST", urlStr, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	e.setHeaders(req, "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")

	util.DebugLog("ElevenLabs: synthesizing %d chars with voice %s", len(text), voiceID)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tts: unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	if err := ValidateAudio(bytes.NewReader(audio)); err != nil {
		return err
	}
	return util.WriteFileAtomic(outPath, audio, 0644, nil)
}

// ValidateAudio accepts tagged audio of any format tag recognises, and
// untagged MP3 starting with an MPEG frame sync
func ValidateAudio(r io.ReadSeeker) error {
	format, fileType, err := tag.Identify(r)
	if err == nil {
		util.DebugLog("Audio identified: %s/%s", format, fileType)
		return nil
	}
	if !errors.Is(err, tag.ErrNoTagsFound) {
		return fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	head := make([]byte, 2)
	if _, err := io.ReadFull(r, head); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	if head[0] == 0xFF && head[1]&0xE0 == 0xE0 {
		return nil
	}
	return fmt.Errorf("%w: no tag and no MPEG frame sync", ErrInvalidAudio)
}

// ValidateAudioFile runs ValidateAudio on a file
func ValidateAudioFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ValidateAudio(f)
}
