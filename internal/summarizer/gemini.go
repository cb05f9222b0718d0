package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsrelay/internal/httpclient"
	"newsrelay/internal/textutil"
	"newsrelay/internal/upstream"
)

const (
	GeminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel = "gemini-2.0-flash"

	// snippetLen bounds how much of an undecodable error body is kept.
	snippetLen = 512
)

// Finish and block reasons that mean the content was filtered.
var geminiSafetyReasons = map[string]bool{
	"SAFETY":             true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	client httpclient.Client
	cfg    Config
}

func NewGemini(client httpclient.Client, cfg Config) *Gemini {
	cfg = cfg.withDefaults(DefaultGeminiModel)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}

	return &Gemini{client: client, cfg: cfg}
}

type geminiPart struct {
	Text *string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *Gemini) Summarize(ctx context.Context, input Input) (string, error) {
	text, language, err := prepare(input, g.cfg.Language)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	system := instructions(language)
	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: &system}}},
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: &text}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.cfg.Temperature,
			MaxOutputTokens: g.cfg.MaxOutputTokens,
			TopP:            g.cfg.TopP,
			TopK:            g.cfg.TopK,
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.cfg.BaseURL, g.cfg.Model)
	resp, err := g.client.PostJSON(ctx, url, nil, map[string]string{
		"x-goog-api-key": g.cfg.APIKey,
	}, req)
	if err != nil {
		return "", upstream.FromTransport(err)
	}

	return resolve(resp.StatusCode(), decodeGemini(resp.Body()))
}

// decodeGemini reads a generateContent payload. Every optional level is
// checked before use.
func decodeGemini(body []byte) generation {
	var payload geminiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return generation{
			outcome: outcomeMalformed,
			message: textutil.Snippet(body, snippetLen),
			err:     fmt.Errorf("decode response: %w", err),
		}
	}

	var message string
	if payload.Error != nil {
		message = payload.Error.Message
	}

	if payload.PromptFeedback != nil && payload.PromptFeedback.BlockReason != "" {
		return generation{outcome: outcomeSafetyBlocked, message: message}
	}

	if len(payload.Candidates) == 0 {
		return generation{outcome: outcomeEmpty, message: message}
	}

	candidate := payload.Candidates[0]
	reason := strings.ToUpper(candidate.FinishReason)
	switch {
	case geminiSafetyReasons[reason]:
		return generation{outcome: outcomeSafetyBlocked, message: message}
	case reason == "MAX_TOKENS":
		return generation{outcome: outcomeMaxTokens, message: message}
	}

	if candidate.Content == nil {
		return generation{outcome: outcomeEmpty, message: message}
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != nil {
			b.WriteString(*part.Text)
		}
	}

	g := ok(b.String())
	g.message = message
	return g
}
