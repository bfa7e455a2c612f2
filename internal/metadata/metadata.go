package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/franz/faceless-shorts/internal/util"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// MaxTitleRunes is the platform limit on video titles
const MaxTitleRunes = 100

// Metadata is the publishable text of a video
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Generator produces metadata for a script
type Generator interface {
	Generate(ctx context.Context, scriptText string) (Metadata, error)
}

// Fallback derives metadata from the script alone: the first non-empty line
// becomes the title, description and tags stay empty
func Fallback(scriptText string) Metadata {
	title := ""
	for _, line := range strings.Split(scriptText, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = line
			break
		}
	}
	return Metadata{
		Title:       truncateRunes(strings.TrimLeft(title, "# "), MaxTitleRunes),
		Description: "",
		Tags:        []string{},
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Config holds OpenAI generator configuration
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // optional, for compatible endpoints
}

// OpenAIGenerator asks a chat model for title, description and tags
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAI creates a generator. The API key is required.
func NewOpenAI(cfg *Config) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", util.ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

const systemPrompt = "You write metadata for a faceless YouTube Shorts channel about AI. " +
	`Reply with a single JSON object: {"title": "...", "description": "...", "tags": ["...", "..."]}. ` +
	"The title must be at most 100 characters."

// Generate returns model-written metadata. A reply that is not valid JSON
// degrades to Fallback; transport and API errors are returned.
func (g *OpenAIGenerator) Generate(ctx context.Context, scriptText string) (Metadata, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Script:\n\"\"\"\n" + scriptText + "\n\"\"\""),
		},
		Model:       g.model,
		Temperature: openai.Float(g.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.maxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Metadata{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		util.WarnLog("Metadata model returned no choices, using fallback")
		return Fallback(scriptText), nil
	}

	md, err := Parse(resp.Choices[0].Message.Content, scriptText)
	if err != nil {
		util.WarnLog("Failed to parse metadata reply: %v", err)
		return Fallback(scriptText), nil
	}
	return md, nil
}

// Parse decodes a model reply and fills gaps from the script. Tolerates
// prose or code fences around the JSON object.
func Parse(raw, scriptText string) (Metadata, error) {
	raw = strings.TrimSpace(raw)
	var md Metadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		obj := firstJSONObject(raw)
		if obj == "" {
			return Metadata{}, fmt.Errorf("no JSON object in reply: %w", err)
		}
		if err := json.Unmarshal([]byte(obj), &md); err != nil {
			return Metadata{}, fmt.Errorf("invalid JSON in reply: %w", err)
		}
	}

	md.Title = strings.TrimSpace(md.Title)
	if md.Title == "" {
		md.Title = Fallback(scriptText).Title
	}
	md.Title = truncateRunes(md.Title, MaxTitleRunes)
	if md.Tags == nil {
		md.Tags = []string{}
	}
	return md, nil
}

func firstJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
