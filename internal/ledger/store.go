package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/franz/faceless-shorts/internal/util"
)

var (
	// ErrMalformedRecord marks a ledger line that is not a valid entry.
	// Such lines are skipped on load.
	ErrMalformedRecord = errors.New("malformed ledger record")

	// ErrDuplicateEntry is available to callers that want to turn a no-op
	// append into an error
	ErrDuplicateEntry = errors.New("entry already in ledger")
)

const maxLineBytes = 4 * 1024 * 1024

// Store is the line-delimited JSON ledger of video entries
type Store struct {
	path        string
	retryConfig *util.RetryConfig
}

// Config holds ledger configuration
type Config struct {
	Path        string
	RetryConfig *util.RetryConfig // nil = util.DefaultRetryConfig()
}

// New creates a Store for the ledger file at cfg.Path
func New(cfg *Config) *Store {
	return &Store{
		path:        cfg.Path,
		retryConfig: cfg.RetryConfig,
	}
}

// Path returns the ledger file location
func (s *Store) Path() string {
	return s.path
}

// LoadResult is the outcome of reading the ledger
type LoadResult struct {
	Entries []*Entry
	Skipped []error // one ErrMalformedRecord per skipped line

	kept   []keptLine
	loaded int
}

// keptLine is a malformed line held verbatim so SaveLoaded can put it back
type keptLine struct {
	before int // entries that precede the line in the file
	data   []byte
}

// Load reads every entry in file order. A missing ledger is empty.
// Malformed lines are skipped and reported in Skipped.
func (s *Store) Load() (*LoadResult, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &LoadResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	result := &LoadResult{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			skipErr := fmt.Errorf("%w: %s line %d: %v", ErrMalformedRecord, s.path, lineNo, err)
			util.WarnLog("Skipping %v", skipErr)
			result.Skipped = append(result.Skipped, skipErr)
			result.kept = append(result.kept, keptLine{
				before: len(result.Entries),
				data:   bytes.Clone(line),
			})
			continue
		}
		if entry.ScriptID == "" && entry.Script != "" {
			entry.ScriptID = util.ScriptID(entry.Script)
		}
		result.Entries = append(result.Entries, &entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	result.loaded = len(result.Entries)
	return result, nil
}

// LoadEntries is Load without the skip report
func (s *Store) LoadEntries() ([]*Entry, error) {
	res, err := s.Load()
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// Save replaces the ledger with entries, one JSON object per line, in order.
// The whole file is encoded in memory before anything touches disk.
func (s *Store) Save(entries []*Entry) error {
	return s.SaveLoaded(&LoadResult{Entries: entries})
}

// SaveLoaded writes res back to the ledger. Malformed lines skipped by Load
// are written verbatim at their original position, and entries appended to
// res.Entries after Load go at the end. Callers may edit or append entries
// but must not reorder or remove the loaded ones.
func (s *Store) SaveLoaded(res *LoadResult) error {
	data, err := encodeLoaded(res)
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(s.path, data, 0644, s.retryConfig); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

// Encode renders entries in ledger format
func Encode(entries []*Entry) ([]byte, error) {
	return encodeLoaded(&LoadResult{Entries: entries})
}

func encodeLoaded(res *LoadResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	next := 0
	writeKept := func(upTo int) {
		for next < len(res.kept) && res.kept[next].before <= upTo {
			buf.Write(res.kept[next].data)
			buf.WriteByte('\n')
			next++
		}
	}
	for i, e := range res.Entries {
		writeKept(min(i, res.loaded))
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("failed to encode entry %s: %w", e.ID(), err)
		}
	}
	writeKept(res.loaded)
	return buf.Bytes(), nil
}

// AppendIfAbsent adds entry unless a record with the same (script, video)
// pair already exists. It reports whether the ledger changed.
func (s *Store) AppendIfAbsent(entry *Entry) (bool, error) {
	res, err := s.Load()
	if err != nil {
		return false, err
	}

	script, video := entry.Key()
	for _, existing := range res.Entries {
		if es, ev := existing.Key(); es == script && ev == video {
			util.DebugLog("Ledger already has %s (%s), not appending", script, video)
			return false, nil
		}
	}

	if entry.ScriptID == "" {
		entry.ScriptID = util.ScriptID(entry.Script)
	}
	res.Entries = append(res.Entries, entry)
	if err := s.SaveLoaded(res); err != nil {
		return false, err
	}
	return true, nil
}
