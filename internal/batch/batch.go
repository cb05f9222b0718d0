package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsrelay/internal/domain"
	"newsrelay/internal/summarizer"
	"newsrelay/internal/textutil"
	"newsrelay/internal/upstream"
)

const (
	DefaultLimit   = 5
	DefaultTimeout = 25 * time.Second
)

// ErrNoEligibleContent is returned when no article has both a title and body text.
var ErrNoEligibleContent = upstream.New(upstream.KindNoEligibleContent, 0, "", nil)

type Config struct {
	// Limit is the most articles summarized per batch.
	Limit int
	// Timeout bounds each summarization call separately.
	Timeout time.Duration
}

// Orchestrator fans a list of articles out to a Summarizer.
type Orchestrator struct {
	summarizer summarizer.Summarizer
	cfg        Config
	log        *slog.Logger
}

func New(s summarizer.Summarizer, cfg Config, log *slog.Logger) *Orchestrator {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Orchestrator{summarizer: s, cfg: cfg, log: log}
}

// Summarize summarizes the first Limit eligible articles concurrently.
// Failed items come back as fallbacks carrying the error kind; the call
// itself fails only when nothing is eligible.
func (o *Orchestrator) Summarize(
	ctx context.Context,
	articles []domain.Article,
	language string,
) ([]domain.SummarizedArticle, error) {
	selected := make([]domain.Article, 0, min(o.cfg.Limit, len(articles)))
	for _, a := range articles {
		if len(selected) == o.cfg.Limit {
			break
		}
		if a.Eligible() {
			selected = append(selected, a)
		}
	}

	if len(selected) == 0 {
		o.log.InfoContext(ctx, "No eligible articles", "received", len(articles))
		return nil, ErrNoEligibleContent
	}

	results := make([]domain.SummarizedArticle, len(selected))

	var wg sync.WaitGroup
	for i := range selected {
		wg.Go(func() {
			results[i] = o.summarizeArticle(ctx, selected[i], language)
		})
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}

	o.log.InfoContext(ctx, "Batch summarized",
		"articles", len(results),
		"failed", failed)

	return results, nil
}

// SummarizeText summarizes a single free-form text.
func (o *Orchestrator) SummarizeText(ctx context.Context, text, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	start := time.Now()
	summary, err := o.summarizer.Summarize(ctx, summarizer.Input{
		Text:     textutil.Truncate(text, summarizer.MaxInputChars),
		Language: language,
	})
	if err != nil {
		err = upstream.FromTransport(err)
		o.log.WarnContext(ctx, "Text summarization failed",
			"kind", upstream.KindOf(err),
			"latencyMs", time.Since(start).Milliseconds(),
			"error", err)
		return "", err
	}

	return summary, nil
}

func (o *Orchestrator) summarizeArticle(
	ctx context.Context,
	article domain.Article,
	language string,
) domain.SummarizedArticle {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	result := domain.SummarizedArticle{
		Title:       article.Title,
		Source:      article.Source,
		URL:         article.URL,
		ImageURL:    article.ImageURL,
		PublishedAt: article.PublishedAt,
	}

	start := time.Now()
	summary, err := o.summarizer.Summarize(ctx, summarizer.Input{
		Text:     textutil.Truncate(article.SummaryText(), summarizer.MaxInputChars),
		Language: language,
	})
	latency := time.Since(start)

	if err != nil {
		err = upstream.FromTransport(err)
		kind := upstream.KindOf(err)
		o.log.WarnContext(ctx, "Article summarization failed",
			"url", article.URL,
			"kind", kind,
			"latencyMs", latency.Milliseconds(),
			"error", err)

		result.Summary = upstream.Describe(err)
		result.ErrorKind = string(kind)
		return result
	}

	o.log.DebugContext(ctx, "Article summarized",
		"url", article.URL,
		"latencyMs", latency.Milliseconds())

	result.Summary = summary
	return result
}
