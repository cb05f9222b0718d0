package summarizer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"newsrelay/internal/httpclient"
	"newsrelay/internal/textutil"
	"newsrelay/internal/upstream"
)

const (
	// MaxInputChars caps the text sent upstream, counted in runes.
	MaxInputChars = 20000

	DefaultLanguage = "English"
	DefaultTimeout  = 25 * time.Second

	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	instructionsTemplate = `Summarize the news article in %s.

Rules:
- One or two sentences, at most 60 words.
- Keep the core facts: who, what, when, key numbers.
- Neutral tone, no opinions.
- No lists, no markdown, no preamble, no links.
- Output only the summary text.`
)

// Input describes the payload for a summary request.
type Input struct {
	// Text is the plain text to summarise.
	Text string
	// Language of the summary. Empty means the configured default.
	Language string
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

// Config holds model and generation parameters shared by all backends.
type Config struct {
	APIKey          string
	Model           string
	BaseURL         string
	Language        string
	Temperature     float64
	MaxOutputTokens int
	TopP            float64
	TopK            int
	Timeout         time.Duration
}

func (c Config) withDefaults(model string) Config {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = model
	}
	if strings.TrimSpace(c.Language) == "" {
		c.Language = DefaultLanguage
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 256
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// New builds the backend named by provider. The http client is only used by
// the REST backends.
func New(provider string, cfg Config, client httpclient.Client) (Summarizer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderGemini:
		return NewGemini(client, cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", provider)
	}
}

// prepare trims and truncates the input text and resolves the language.
func prepare(input Input, defaultLanguage string) (text, language string, err error) {
	text = strings.TrimSpace(input.Text)
	if text == "" {
		return "", "", upstream.New(upstream.KindInvalidRequest, 0, "input text is empty", nil)
	}
	text = textutil.Truncate(text, MaxInputChars)

	language = strings.TrimSpace(input.Language)
	if language == "" {
		language = defaultLanguage
	}

	return text, language, nil
}

func instructions(language string) string {
	return fmt.Sprintf(instructionsTemplate, language)
}

// outcome tags a decoded generation.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeSafetyBlocked
	outcomeMaxTokens
	outcomeEmpty
	outcomeMalformed
)

// generation is a decoded upstream payload. text is set only for outcomeOK.
type generation struct {
	outcome outcome
	text    string
	// message is upstream error text, if the payload carried any.
	message string
	err     error
}

func ok(text string) generation {
	text = textutil.TrimModelOutput(text)
	if text == "" {
		return generation{outcome: outcomeEmpty}
	}
	return generation{outcome: outcomeOK, text: text}
}

func (g generation) signal() upstream.Signal {
	switch g.outcome {
	case outcomeSafetyBlocked:
		return upstream.SignalSafetyBlocked
	case outcomeMaxTokens:
		return upstream.SignalMaxTokens
	case outcomeEmpty:
		return upstream.SignalEmpty
	default:
		return upstream.SignalNone
	}
}

// resolve turns a decoded generation and its HTTP status into a summary or
// a classified error.
func resolve(status int, g generation) (string, error) {
	if g.outcome == outcomeMalformed && status < http.StatusBadRequest {
		return "", upstream.Malformed(status, g.err)
	}

	if err := upstream.Classify(upstream.Response{
		Status:  status,
		Signal:  g.signal(),
		Message: g.message,
	}); err != nil {
		return "", err
	}

	if g.outcome != outcomeOK {
		return "", upstream.New(upstream.KindUpstreamUnknown, status, "", nil)
	}

	return g.text, nil
}
