package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/faceless-shorts/internal/config"
	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/store"
	"github.com/franz/faceless-shorts/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure shorts can operate correctly.

This command checks:
- Required tools (ffmpeg, ffprobe)
- SQLite version and history database integrity
- The video ledger (readable, malformed lines)
- Working directories and the background image
- API credentials (OpenAI, ElevenLabs, YouTube)
- Disk space for rendered videos

Use this command to troubleshoot issues before a render or upload run.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func passed(name, message string) checkResult {
	return checkResult{name: name, message: message}
}

func warned(name, message string) checkResult {
	return checkResult{name: name, message: message, warning: true}
}

func failed(name, message string) checkResult {
	return checkResult{name: name, message: message, error: true}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Shorts Doctor - System Diagnostics ===")
	util.InfoLog("")

	cfg, err := loadConfig()
	if err != nil {
		util.ErrorLog("[✗] Configuration: %v", err)
		return fmt.Errorf("system diagnostics failed")
	}

	results := []checkResult{passed("Configuration", configSource())}
	results = append(results, checkTool("ffmpeg", 2))
	results = append(results, checkTool("ffprobe", 2))
	results = append(results, checkSQLite())
	results = append(results, checkDatabase(cfg.HistoryDB))
	results = append(results, checkLedger(cfg.Ledger))
	results = append(results, checkScriptsDirectory(cfg.Paths.Scripts))
	for _, dir := range []struct{ label, path string }{
		{"Audio directory", cfg.Paths.Audio},
		{"Video directory", cfg.Paths.Video},
		{"Artifacts directory", cfg.Paths.Artifacts},
	} {
		results = append(results, checkWritableDirectory(dir.label, dir.path))
	}
	results = append(results, checkBackground(cfg.Video.Background))
	results = append(results, checkCredentials(cfg.Secrets)...)
	results = append(results, checkDiskSpace(cfg.Paths.Video, "videos"))

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before running shorts.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed! Ready to render and upload.")
	}

	return nil
}

func configSource() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "built-in defaults and SHORTS_* environment"
}

// checkTool verifies an ffmpeg-family binary is available and reads its
// version from field versionField of the first output line
func checkTool(name string, versionField int) checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, "-version").CombinedOutput()
	if err != nil {
		return failed(name, "not found or not executable (required for rendering)")
	}

	version := "unknown"
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		parts := strings.Fields(lines[0])
		if len(parts) > versionField {
			version = parts[versionField]
		}
	}

	return passed(name, fmt.Sprintf("version %s", version))
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is pure Go, there is no external library to find
	version := store.SQLiteVersion()
	if version == "" {
		return failed("SQLite", "unable to determine version")
	}

	return passed("SQLite", fmt.Sprintf("version %s (built-in)", version))
}

// checkDatabase verifies the history database
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return warned("History database", "disabled (history_db is empty)")
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return passed("History database", fmt.Sprintf("%s (will be created on first upload or track)", dbPath))
		}
		return failed("History database", fmt.Sprintf("cannot access %s: %v", dbPath, err))
	}

	if !info.Mode().IsRegular() {
		return failed("History database", fmt.Sprintf("%s is not a regular file", dbPath))
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return failed("History database", fmt.Sprintf("cannot open %s: %v", dbPath, err))
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return failed("History database", fmt.Sprintf("integrity check failed: %v", err))
	}

	attempts, _ := db.CountUploadAttempts()
	return passed("History database", fmt.Sprintf("%s (%d upload attempts)", dbPath, attempts))
}

// checkLedger loads the ledger and reports malformed lines
func checkLedger(path string) checkResult {
	if !fileExists(path) {
		return passed("Ledger", fmt.Sprintf("%s (will be created by render)", path))
	}

	loaded, err := ledger.New(&ledger.Config{Path: path}).Load()
	if err != nil {
		return failed("Ledger", fmt.Sprintf("cannot read %s: %v", path, err))
	}

	pending := 0
	for _, e := range loaded.Entries {
		if !e.Uploaded {
			pending++
		}
	}
	msg := fmt.Sprintf("%s (%d entries, %d pending)", path, len(loaded.Entries), pending)
	if len(loaded.Skipped) > 0 {
		return warned("Ledger", fmt.Sprintf("%s, %d malformed lines (kept in the file, not loaded)", msg, len(loaded.Skipped)))
	}
	return passed("Ledger", msg)
}

// checkScriptsDirectory verifies the scripts directory is readable
func checkScriptsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return failed("Scripts directory", fmt.Sprintf("cannot access %s: %v", path, err))
	}
	if !info.IsDir() {
		return failed("Scripts directory", fmt.Sprintf("%s is not a directory", path))
	}

	scripts, err := filepath.Glob(filepath.Join(path, "*.md"))
	if err != nil {
		return failed("Scripts directory", fmt.Sprintf("cannot read %s: %v", path, err))
	}
	if len(scripts) == 0 {
		return warned("Scripts directory", fmt.Sprintf("%s has no .md scripts", path))
	}

	return passed("Scripts directory", fmt.Sprintf("%s (%d scripts)", path, len(scripts)))
}

// checkWritableDirectory verifies a directory exists (creating it) and is writable
func checkWritableDirectory(label, path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return failed(label, fmt.Sprintf("cannot create %s: %v", path, err))
			}
			return passed(label, fmt.Sprintf("%s (created)", path))
		}
		return failed(label, fmt.Sprintf("cannot access %s: %v", path, err))
	}

	if !info.IsDir() {
		return failed(label, fmt.Sprintf("%s is not a directory", path))
	}

	// Check write permission by creating a temp file
	testFile := filepath.Join(path, ".shorts_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return failed(label, fmt.Sprintf("cannot write to %s: %v", path, err))
	}
	f.Close()
	os.Remove(testFile)

	return passed(label, fmt.Sprintf("%s (writable)", path))
}

// checkBackground verifies the fallback image used for rendering exists
func checkBackground(path string) checkResult {
	if !fileExists(path) {
		return failed("Background image", fmt.Sprintf("%s not found (video.background)", path))
	}
	return passed("Background image", path)
}

// checkCredentials reports which API secrets are missing. Missing secrets
// only disable the stages that need them.
func checkCredentials(s config.Secrets) []checkResult {
	check := func(name, stage string, set bool) checkResult {
		if !set {
			return warned(name, fmt.Sprintf("not set (%s will fail)", stage))
		}
		return passed(name, "set")
	}

	return []checkResult{
		check("OPENAI_API_KEY", "render", s.OpenAIKey != ""),
		check("ELEVENLABS_API_KEY", "render", s.ElevenLabsKey != ""),
		check("YouTube credentials", "upload and track", s.RequireYouTube() == nil),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return warned(fmt.Sprintf("Disk space (%s)", label), fmt.Sprintf("cannot determine disk space: %v", err))
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	availGB := float64(availBytes) / (1024 * 1024 * 1024)

	// A rendered short is tens of megabytes
	if availGB < 1 {
		return warned(fmt.Sprintf("Disk space (%s)", label), fmt.Sprintf("%.1f GB available (low space!)", availGB))
	}

	return passed(fmt.Sprintf("Disk space (%s)", label), fmt.Sprintf("%.1f GB available", availGB))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
