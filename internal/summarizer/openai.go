package summarizer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"newsrelay/internal/upstream"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI calls OpenAI's Responses API to produce summaries.
type OpenAI struct {
	client openai.Client
	cfg    Config
}

// NewOpenAI builds a client with SDK retries disabled.
func NewOpenAI(cfg Config) *OpenAI {
	cfg = cfg.withDefaults(DefaultOpenAIModel)

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

func (s *OpenAI) Summarize(ctx context.Context, input Input) (string, error) {
	text, language, err := prepare(input, s.cfg.Language)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	params := responses.ResponseNewParams{
		Model:           s.cfg.Model,
		MaxOutputTokens: openai.Int(int64(s.cfg.MaxOutputTokens)),
		Temperature:     openai.Float(s.cfg.Temperature),
		Instructions:    openai.String(instructions(language)),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}
	if s.cfg.TopP > 0 {
		params.TopP = openai.Float(s.cfg.TopP)
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return resolve(apiErr.StatusCode, generation{
				outcome: outcomeEmpty,
				message: apiErr.Message,
			})
		}
		return "", upstream.FromTransport(err)
	}

	return resolve(http.StatusOK, decodeOpenAI(resp))
}

func decodeOpenAI(resp *responses.Response) generation {
	if resp == nil {
		return generation{outcome: outcomeEmpty}
	}

	if resp.Status == "incomplete" {
		switch resp.IncompleteDetails.Reason {
		case "content_filter":
			return generation{outcome: outcomeSafetyBlocked}
		case "max_output_tokens":
			return generation{outcome: outcomeMaxTokens}
		}
	}

	if resp.Status == "failed" {
		return generation{outcome: outcomeEmpty, message: resp.Error.Message}
	}

	return ok(resp.OutputText())
}
