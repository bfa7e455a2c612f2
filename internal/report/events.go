package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventRender      EventType = "render"
	EventAppend      EventType = "append"
	EventSelect      EventType = "select"
	EventUpload      EventType = "upload"
	EventThumbnail   EventType = "thumbnail"
	EventPromote     EventType = "promote"
	EventStats       EventType = "stats"
	EventGrowthAlert EventType = "growth_alert"
	EventSkip        EventType = "skip"
	EventError       EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the pipeline
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	ScriptID  string            `json:"script_id,omitempty"`
	VideoID   string            `json:"video_id,omitempty"`
	Path      string            `json:"path,omitempty"`
	Thumbnail string            `json:"thumbnail,omitempty"`
	Score     float64           `json:"score,omitempty"`
	Views     int64             `json:"views,omitempty"`
	Rate      float64           `json:"rate,omitempty"` // views per hour
	Reason    string            `json:"reason,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. A nil *EventLogger is valid and
// discards everything.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates artifacts/events-<timestamp>.jsonl under outputDir
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.NewString()
	filename := fmt.Sprintf("events-%s-%s.jsonl", time.Now().Format("20060102-150405"), runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// LogRender logs a rendered (or failed) video
func (l *EventLogger) LogRender(scriptID, videoPath string, duration time.Duration, err error) error {
	ev := &Event{
		Level:    LevelInfo,
		Event:    EventRender,
		ScriptID: scriptID,
		Path:     videoPath,
		Duration: duration.Milliseconds(),
	}
	if err != nil {
		ev.Level = LevelError
		ev.Error = err.Error()
	}
	return l.Log(ev)
}

// LogAppend logs a ledger append attempt
func (l *EventLogger) LogAppend(scriptID, videoPath string, appended bool) error {
	ev := &Event{
		Level:    LevelInfo,
		Event:    EventAppend,
		ScriptID: scriptID,
		Path:     videoPath,
	}
	if !appended {
		ev.Event = EventSkip
		ev.Reason = "duplicate"
	}
	return l.Log(ev)
}

// LogSelect logs which thumbnail the selector picked and from which tier
func (l *EventLogger) LogSelect(scriptID, thumbnail, tier string, candidates int) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventSelect,
		ScriptID:  scriptID,
		Thumbnail: thumbnail,
		Reason:    tier,
		Extra: map[string]string{
			"candidates": fmt.Sprintf("%d", candidates),
		},
	})
}

// LogUpload logs an upload result
func (l *EventLogger) LogUpload(scriptID, videoPath, videoID string, duration time.Duration, err error) error {
	ev := &Event{
		Level:    LevelInfo,
		Event:    EventUpload,
		ScriptID: scriptID,
		Path:     videoPath,
		VideoID:  videoID,
		Duration: duration.Milliseconds(),
	}
	if err != nil {
		ev.Level = LevelError
		ev.Error = err.Error()
	}
	return l.Log(ev)
}

// LogThumbnailSet logs attaching a thumbnail to an uploaded video
func (l *EventLogger) LogThumbnailSet(videoID, thumbnail string, err error) error {
	ev := &Event{
		Level:     LevelInfo,
		Event:     EventThumbnail,
		VideoID:   videoID,
		Thumbnail: thumbnail,
	}
	if err != nil {
		ev.Level = LevelWarning
		ev.Error = err.Error()
	}
	return l.Log(ev)
}

// LogPromote logs a thumbnail crossing the lock threshold
func (l *EventLogger) LogPromote(scriptID, videoID, thumbnail string, score float64) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventPromote,
		ScriptID:  scriptID,
		VideoID:   videoID,
		Thumbnail: thumbnail,
		Score:     score,
	})
}

// LogStats logs a stats refresh for one video
func (l *EventLogger) LogStats(scriptID, videoID string, views int64, rate float64, err error) error {
	ev := &Event{
		Level:    LevelDebug,
		Event:    EventStats,
		ScriptID: scriptID,
		VideoID:  videoID,
		Views:    views,
		Rate:     rate,
	}
	if err != nil {
		ev.Level = LevelError
		ev.Error = err.Error()
	}
	return l.Log(ev)
}

// LogGrowthAlert logs a video growing faster than the alert threshold
func (l *EventLogger) LogGrowthAlert(scriptID, videoID string, newViews int64, hours, rate float64) error {
	return l.Log(&Event{
		Level:    LevelWarning,
		Event:    EventGrowthAlert,
		ScriptID: scriptID,
		VideoID:  videoID,
		Views:    newViews,
		Rate:     rate,
		Extra: map[string]string{
			"hours": fmt.Sprintf("%.2f", hours),
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, scriptID string, err error) error {
	return l.Log(&Event{
		Level:    LevelError,
		Event:    event,
		ScriptID: scriptID,
		Error:    err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the identifier stamped on every event of this run
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
