package summarizer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"newsrelay/internal/upstream"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultAnthropicModel = "claude-haiku-4-5"

// Anthropic calls the Messages API.
type Anthropic struct {
	client *anthropic.Client
	cfg    Config
}

func NewAnthropic(cfg Config) *Anthropic {
	cfg = cfg.withDefaults(DefaultAnthropicModel)

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := anthropic.NewClient(opts...)
	return &Anthropic{client: &client, cfg: cfg}
}

func (s *Anthropic) Summarize(ctx context.Context, input Input) (string, error) {
	text, language, err := prepare(input, s.cfg.Language)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(s.cfg.Model),
		MaxTokens:   int64(s.cfg.MaxOutputTokens),
		Temperature: anthropic.Float(s.cfg.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: instructions(language)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return resolve(apiErr.StatusCode, generation{
				outcome: outcomeEmpty,
				message: apiErr.Error(),
			})
		}
		return "", upstream.FromTransport(err)
	}

	return resolve(http.StatusOK, decodeAnthropic(resp))
}

func decodeAnthropic(resp *anthropic.Message) generation {
	if resp == nil {
		return generation{outcome: outcomeEmpty}
	}

	switch resp.StopReason {
	case "refusal":
		return generation{outcome: outcomeSafetyBlocked}
	case "max_tokens":
		return generation{outcome: outcomeMaxTokens}
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return ok(b.String())
}
