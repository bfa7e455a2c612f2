package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/metadata"
	"github.com/franz/faceless-shorts/internal/render"
	"github.com/franz/faceless-shorts/internal/util"
	"github.com/schollz/progressbar/v3"
)

// RenderResult summarises a RenderAll pass
type RenderResult struct {
	Scripts  int
	Rendered int
	Skipped  int // video already on disk
	Appended int // new ledger entries
	Errors   []error
}

// barWidth keeps the progress bar within narrow terminals
func barWidth() int {
	if w := util.GetTerminalWidth() - 50; w < 40 {
		if w < 10 {
			return 10
		}
		return w
	}
	return 40
}

// ScriptText reads a script and strips markdown emphasis
func ScriptText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(strings.TrimSpace(string(data)), "*", ""), nil
}

// RenderAll renders every script in the scripts directory that has no video
// yet and appends an entry for it to the ledger. A failing script is recorded
// in Errors and the batch continues.
func (p *Pipeline) RenderAll(ctx context.Context) (*RenderResult, error) {
	scripts, err := filepath.Glob(filepath.Join(p.cfg.Dirs.Scripts, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	sort.Strings(scripts)

	result := &RenderResult{Scripts: len(scripts)}
	if len(scripts) == 0 {
		util.InfoLog("No scripts found in %s", p.cfg.Dirs.Scripts)
		return result, nil
	}
	util.InfoLog("Found %d scripts", len(scripts))

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(scripts),
			progressbar.OptionSetDescription("Rendering"),
			progressbar.OptionSetWidth(barWidth()),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("scripts"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, script := range scripts {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("render interrupted: %w", err))
			break
		}

		rendered, appended, err := p.renderScript(ctx, script)
		switch {
		case err != nil:
			util.ErrorLog("Render %s: %v", script, err)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", script, err))
		case rendered:
			result.Rendered++
		default:
			result.Skipped++
		}
		if appended {
			result.Appended++
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	return result, nil
}

func (p *Pipeline) renderScript(ctx context.Context, script string) (rendered, appended bool, err error) {
	id := util.ScriptID(script)
	audioPath := filepath.Join(p.cfg.Dirs.Audio, id+".mp3")
	videoPath := filepath.Join(p.cfg.Dirs.Video, id+".mp4")

	if _, err := os.Stat(videoPath); err == nil {
		util.DebugLog("Video exists for %s, skipping", id)
		return false, false, nil
	}

	text, err := ScriptText(script)
	if err != nil {
		return false, false, fmt.Errorf("read script: %w", err)
	}

	start := time.Now()
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		if err := p.cfg.Speaker.Synthesize(ctx, text, audioPath); err != nil {
			return false, false, fmt.Errorf("tts: %w", err)
		}
	} else if err := render.ValidateAudioFile(audioPath); err != nil {
		return false, false, fmt.Errorf("existing audio %s: %w", audioPath, err)
	}

	background := p.cfg.Background
	job := render.Job{Script: script, Audio: audioPath, Background: background, Output: videoPath}
	if err := p.cfg.Renderer.Render(ctx, job); err != nil {
		p.cfg.Logger.LogRender(id, videoPath, time.Since(start), err)
		return false, false, err
	}
	p.cfg.Logger.LogRender(id, videoPath, time.Since(start), nil)
	util.SuccessLog("Rendered %s", videoPath)

	md, err := p.cfg.Metadata.Generate(ctx, text)
	if err != nil {
		util.WarnLog("Metadata for %s: %v, using fallback", id, err)
		md = metadata.Fallback(text)
	}

	thumbs := DiscoverThumbnails(p.cfg.Dirs.Thumbnails, id, md.Title)
	entry := &ledger.Entry{
		ScriptID:    id,
		Script:      script,
		Video:       videoPath,
		Audio:       audioPath,
		Background:  background,
		Title:       md.Title,
		Description: md.Description,
		Tags:        md.Tags,
		Timestamp:   p.now().Format(time.RFC3339),
		Thumbnails:  thumbs,
	}
	if len(thumbs) > 0 {
		entry.Thumbnail = thumbs[0]
	} else {
		entry.Thumbnail = background
	}

	appended, err = p.cfg.Ledger.AppendIfAbsent(entry)
	if err != nil {
		return true, false, fmt.Errorf("ledger append: %w", err)
	}
	p.cfg.Logger.LogAppend(id, videoPath, appended)
	return true, appended, nil
}

var thumbnailExts = []string{".png", ".jpg", ".jpeg"}

// DiscoverThumbnails lists the candidate thumbnails for a script:
// <dir>/<scriptID>_*.{png,jpg,jpeg} in name order, then
// <dir>/<slug(title)>_thumb.png when present
func DiscoverThumbnails(dir, scriptID, title string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	var matches []string
	for _, ext := range thumbnailExts {
		m, _ := filepath.Glob(filepath.Join(dir, globEscape(scriptID)+"_*"+ext))
		matches = append(matches, m...)
	}
	sort.Strings(matches)
	for _, m := range matches {
		add(m)
	}

	if slug := util.Slugify(title); slug != "" {
		p := filepath.Join(dir, slug+"_thumb.png")
		if _, err := os.Stat(p); err == nil {
			add(p)
		}
	}
	return out
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
