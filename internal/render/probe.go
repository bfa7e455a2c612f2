package render

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/franz/faceless-shorts/internal/util"
)

// ProbeInfo is the subset of ffprobe output the pipeline checks
type ProbeInfo struct {
	Streams []ProbeStream `json:"streams"`
	Format  *ProbeFormat  `json:"format"`
}

// IntOrString can unmarshal both integers and strings from JSON
type IntOrString struct {
	Value int
}

// UnmarshalJSON accepts 30, "30" and "N/A"
func (i *IntOrString) UnmarshalJSON(data []byte) error {
	var intVal int
	if err := json.Unmarshal(data, &intVal); err == nil {
		i.Value = intVal
		return nil
	}

	var strVal string
	if err := json.Unmarshal(data, &strVal); err != nil {
		return err
	}
	parsed, err := strconv.Atoi(strVal)
	if err != nil {
		i.Value = 0
		return nil
	}
	i.Value = parsed
	return nil
}

// ProbeStream is one audio or video stream
type ProbeStream struct {
	Index     int         `json:"index"`
	CodecName string      `json:"codec_name"`
	CodecType string      `json:"codec_type"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Channels  int         `json:"channels"`
	BitRate   IntOrString `json:"bit_rate"`
	Duration  string      `json:"duration"`
}

// ProbeFormat is container level metadata
type ProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// DurationSeconds returns the container duration, 0 when unknown
func (p *ProbeInfo) DurationSeconds() float64 {
	if p.Format == nil {
		return 0
	}
	d, err := strconv.ParseFloat(p.Format.Duration, 64)
	if err != nil {
		return 0
	}
	return d
}

// Stream returns the first stream of the given codec type ("video", "audio")
func (p *ProbeInfo) Stream(codecType string) *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == codecType {
			return &p.Streams[i]
		}
	}
	return nil
}

// ParseProbe decodes ffprobe -print_format json output
func ParseProbe(output []byte) (*ProbeInfo, error) {
	var info ProbeInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &info, nil
}

// Probe runs ffprobe on path
func Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, fmt.Errorf("ffprobe: %w", util.ErrToolMissing)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe execution failed: %w", err)
	}
	return ParseProbe(output)
}

// CheckRendered verifies a rendered short has both streams and a duration
func CheckRendered(info *ProbeInfo) error {
	if info.Stream("video") == nil {
		return fmt.Errorf("no video stream")
	}
	if info.Stream("audio") == nil {
		return fmt.Errorf("no audio stream")
	}
	if info.DurationSeconds() <= 0 {
		return fmt.Errorf("zero duration")
	}
	return nil
}
