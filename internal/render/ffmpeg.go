package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/franz/faceless-shorts/internal/util"
)

// Job describes one video to render
type Job struct {
	Script     string
	Audio      string
	Background string
	Output     string
}

// Renderer turns narration audio and a background image into a video
type Renderer interface {
	Render(ctx context.Context, job Job) error
}

// VideoSettings are the encoder parameters
type VideoSettings struct {
	Width        int
	Height       int
	FPS          int
	Codec        string
	Bitrate      string
	AudioBitrate string
	SampleRate   int
	Channels     int
}

// FFmpegRenderer renders with the ffmpeg binary
type FFmpegRenderer struct {
	settings VideoSettings
	binary   string
	probe    bool
}

// FFmpegConfig holds renderer configuration
type FFmpegConfig struct {
	Settings VideoSettings
	Binary   string // default "ffmpeg"
	Probe    bool   // verify output with ffprobe
}

// NewFFmpeg creates an ffmpeg renderer
func NewFFmpeg(cfg *FFmpegConfig) *FFmpegRenderer {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	return &FFmpegRenderer{
		settings: cfg.Settings,
		binary:   cfg.Binary,
		probe:    cfg.Probe,
	}
}

// Args builds the ffmpeg argument list for a job writing to out
func (r *FFmpegRenderer) Args(job Job, out string) []string {
	s := r.settings
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", s.Width, s.Height, s.Width, s.Height)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1", "-i", job.Background,
		"-i", job.Audio,
		"-vf", scale,
		"-r", strconv.Itoa(s.FPS),
		"-c:v", s.Codec,
		"-tune", "stillimage",
		"-pix_fmt", "yuv420p",
	}
	if s.Bitrate != "" {
		args = append(args, "-b:v", s.Bitrate)
	}
	args = append(args, "-c:a", "aac")
	if s.AudioBitrate != "" {
		args = append(args, "-b:a", s.AudioBitrate)
	}
	if s.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(s.SampleRate))
	}
	if s.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(s.Channels))
	}
	return append(args, "-shortest", "-movflags", "+faststart", "-f", "mp4", out)
}

// Render encodes into a sibling temp file and renames it into place, so an
// existing output always means a finished render
func (r *FFmpegRenderer) Render(ctx context.Context, job Job) error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("%s: %w", r.binary, util.ErrToolMissing)
	}
	for _, in := range []string{job.Audio, job.Background} {
		if _, err := os.Stat(in); err != nil {
			return fmt.Errorf("render input: %w", err)
		}
	}
	if err := util.RetryableMkdirAll(filepath.Dir(job.Output), 0755, nil); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp := job.Output + ".part"
	defer os.Remove(tmp)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, r.Args(job, tmp)...)
	cmd.Stderr = &stderr
	util.DebugLog("ffmpeg %s", strings.Join(cmd.Args[1:], " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	if r.probe {
		info, err := Probe(ctx, tmp)
		if err != nil {
			return err
		}
		if err := CheckRendered(info); err != nil {
			return fmt.Errorf("rendered %s is unusable: %w", job.Output, err)
		}
		util.DebugLog("Rendered %s: %.1fs", job.Output, info.DurationSeconds())
	}

	return util.RetryableRename(tmp, job.Output, nil)
}
