package inference

import (
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
)

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(GeminiConfig{}, logger.Discard()); err == nil {
		t.Error("NewGemini() should fail without API keys")
	}
}

func TestGeminiRotateKey(t *testing.T) {
	rec, err := NewGemini(GeminiConfig{APIKeys: []string{"a", "b", "c"}}, logger.Discard())
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}
	g := rec.(*implGemini)

	for _, want := range []int{1, 2, 0} {
		g.rotateKey()
		if g.currentKey != want {
			t.Errorf("currentKey = %d, want %d", g.currentKey, want)
		}
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("Error 429, Message: too many requests"), true},
		{errors.New("RESOURCE_EXHAUSTED"), true},
		{errors.New("quota exceeded for project"), true},
		{errors.New("invalid argument"), false},
	}
	for _, tt := range tests {
		if got := isRateLimited(tt.err); got != tt.want {
			t.Errorf("isRateLimited(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: " hello "},
				{Text: "world "},
			}},
		}},
	}
	if got := responseText(resp); got != "hello world" {
		t.Errorf("responseText() = %q, want %q", got, "hello world")
	}
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q, want empty", got)
	}
}
