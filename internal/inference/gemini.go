package inference

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
)

const transcribePrompt = `Transcribe the speech in this audio clip verbatim.
Return only the spoken words as plain text, with no commentary, labels or timestamps.
If the clip contains no speech, return an empty response.%s`

// GeminiConfig configures the Gemini recognizer
type GeminiConfig struct {
	APIKeys    []string
	Model      string
	Language   string
	SampleRate int
}

type implGemini struct {
	cfg        GeminiConfig
	clients    map[int]*genai.Client
	currentKey int
	logger     logger.Logger
}

// NewGemini creates a Recognizer that sends each chunk inline to Gemini,
// rotating through the supplied API keys when one is rate limited.
func NewGemini(cfg GeminiConfig, log logger.Logger) (Recognizer, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("gemini: at least one API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &implGemini{
		cfg:     cfg,
		clients: make(map[int]*genai.Client),
		logger:  log,
	}, nil
}

// Transcribe sends the chunk as audio/wav and returns the model's text
func (g *implGemini) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wav, err := EncodeWAV(samples, g.cfg.SampleRate)
	if err != nil {
		return "", fmt.Errorf("encode chunk: %w", err)
	}

	hint := ""
	if g.cfg.Language != "" && g.cfg.Language != "auto" {
		hint = fmt.Sprintf("\nThe spoken language is %q.", g.cfg.Language)
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(transcribePrompt, hint)),
			genai.NewPartFromBytes(wav, "audio/wav"),
		}, genai.RoleUser),
	}

	var lastErr error
	for range len(g.cfg.APIKeys) {
		client, err := g.client(ctx)
		if err != nil {
			lastErr = err
			g.rotateKey()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, g.cfg.Model, contents, nil)
		if err != nil {
			if isRateLimited(err) {
				g.logger.Warn(ctx, "Key %d rate limited, rotating...", g.currentKey+1)
				g.rotateKey()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		return responseText(result), nil
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *implGemini) client(ctx context.Context) (*genai.Client, error) {
	if c, ok := g.clients[g.currentKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.cfg.APIKeys[g.currentKey],
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	g.clients[g.currentKey] = c
	return c, nil
}

func (g *implGemini) rotateKey() {
	g.currentKey = (g.currentKey + 1) % len(g.cfg.APIKeys)
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
