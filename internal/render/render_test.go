package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/faceless-shorts/internal/util"
)

const sampleProbe = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1080, "height": 1920, "bit_rate": "3900000"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2, "bit_rate": 192000}
  ],
  "format": {"filename": "out.mp4", "format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "41.250000", "size": "2000000"}
}`

func TestParseProbe(t *testing.T) {
	info, err := ParseProbe([]byte(sampleProbe))
	if err != nil {
		t.Fatalf("ParseProbe failed: %v", err)
	}
	if info.DurationSeconds() != 41.25 {
		t.Errorf("expected 41.25s, got %v", info.DurationSeconds())
	}
	video := info.Stream("video")
	if video == nil || video.Width != 1080 || video.BitRate.Value != 3900000 {
		t.Errorf("unexpected video stream: %+v", video)
	}
	if audio := info.Stream("audio"); audio == nil || audio.BitRate.Value != 192000 {
		t.Errorf("unexpected audio stream: %+v", audio)
	}
	if err := CheckRendered(info); err != nil {
		t.Errorf("expected usable render, got %v", err)
	}
}

func TestCheckRendered(t *testing.T) {
	tests := []struct {
		name string
		info ProbeInfo
		want string
	}{
		{"no video", ProbeInfo{Streams: []ProbeStream{{CodecType: "audio"}}}, "no video"},
		{"no audio", ProbeInfo{Streams: []ProbeStream{{CodecType: "video"}}}, "no audio"},
		{"no duration", ProbeInfo{Streams: []ProbeStream{{CodecType: "video"}, {CodecType: "audio"}}, Format: &ProbeFormat{Duration: "N/A"}}, "zero duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRendered(&tt.info)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFFmpegArgs(t *testing.T) {
	r := NewFFmpeg(&FFmpegConfig{Settings: VideoSettings{
		Width: 1080, Height: 1920, FPS: 30, Codec: "libx264",
		Bitrate: "4000k", AudioBitrate: "192k", SampleRate: 44100, Channels: 2,
	}})
	args := strings.Join(r.Args(Job{Audio: "a.mp3", Background: "bg.png"}, "out.part"), " ")

	for _, want := range []string{
		"-loop 1 -i bg.png",
		"-i a.mp3",
		"scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920",
		"-r 30",
		"-c:v libx264",
		"-b:v 4000k",
		"-b:a 192k",
		"-ar 44100",
		"-ac 2",
		"-shortest",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
	if !strings.HasSuffix(args, "-f mp4 out.part") {
		t.Errorf("expected explicit mp4 output last: %s", args)
	}
}

func TestRenderMissingInput(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	r := NewFFmpeg(&FFmpegConfig{Settings: VideoSettings{Width: 640, Height: 480, FPS: 1, Codec: "libx264"}})
	err := r.Render(context.Background(), Job{
		Audio:      filepath.Join(dir, "missing.mp3"),
		Background: filepath.Join(dir, "missing.png"),
		Output:     filepath.Join(dir, "out.mp4"),
	})
	if err == nil {
		t.Fatal("expected error for missing inputs")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.mp4")); !os.IsNotExist(statErr) {
		t.Error("no output may exist after a failed render")
	}
}

func TestRenderToolMissing(t *testing.T) {
	r := NewFFmpeg(&FFmpegConfig{Binary: "definitely-not-ffmpeg-xyz"})
	err := r.Render(context.Background(), Job{})
	if !errors.Is(err, util.ErrToolMissing) {
		t.Errorf("expected ErrToolMissing, got %v", err)
	}
}

// fakeMP3 is an untagged MPEG frame header followed by padding
func fakeMP3() []byte {
	b := make([]byte, 512)
	b[0], b[1], b[2], b[3] = 0xFF, 0xFB, 0x90, 0x64
	return b
}

func TestValidateAudio(t *testing.T) {
	id3 := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 200)...)
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"untagged mp3", fakeMP3(), false},
		{"id3 tagged", id3, false},
		{"json error body", append([]byte(`{"detail":"quota_exceeded"}`), make([]byte, 200)...), true},
		{"too short", []byte{0xFF}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAudio(bytes.NewReader(tt.data))
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	var gotBody ttsRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch {
		case r.URL.Path == "/v1/voices":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"voices":[{"voice_id":"v-roger","name":"Roger"},{"voice_id":"v-laura","name":"Laura"}]}`)
		case strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/"):
			gotPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write(fakeMP3())
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tts, err := NewElevenLabs(&ElevenLabsConfig{
		APIKey:          "key",
		Voice:           "laura",
		Model:           "eleven_multilingual_v2",
		Stability:       0.5,
		SimilarityBoost: 0.75,
		BaseURL:         srv.URL,
	})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "audio", "s1.mp3")
	if err := tts.Synthesize(context.Background(), "Hello there", out); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if gotPath != "/v1/text-to-speech/v-laura" {
		t.Errorf("unexpected voice path %s", gotPath)
	}
	if gotBody.Text != "Hello there" || gotBody.ModelID != "eleven_multilingual_v2" || gotBody.VoiceSettings.SimilarityBoost != 0.75 {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
	if err := ValidateAudioFile(out); err != nil {
		t.Errorf("written audio invalid: %v", err)
	}
}

func TestElevenLabsUnknownVoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"voices":[]}`)
	}))
	defer srv.Close()

	tts, _ := NewElevenLabs(&ElevenLabsConfig{APIKey: "key", Voice: "Nobody", BaseURL: srv.URL})
	err := tts.Synthesize(context.Background(), "text", filepath.Join(t.TempDir(), "x.mp3"))
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNewElevenLabsRequiresKey(t *testing.T) {
	if _, err := NewElevenLabs(&ElevenLabsConfig{}); !errors.Is(err, util.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}
