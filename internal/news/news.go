package news

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"newsrelay/internal/domain"
	"newsrelay/internal/textutil"
)

const (
	defaultCountry  = "us"
	defaultCategory = "general"
	defaultPageSize = 20
	maxPageSize     = 100
	defaultTimeout  = 10 * time.Second
)

type Query struct {
	Country  string
	Category string
	PageSize int
}

type Headlines struct {
	Articles     []domain.Article `json:"articles"`
	TotalResults int              `json:"totalResults"`
}

// Source is a news backend. Errors are *upstream.Error values.
type Source interface {
	Headlines(ctx context.Context, q Query) (Headlines, error)
}

type Config struct {
	DefaultCountry  string
	DefaultCategory string
	PageSize        int
	Timeout         time.Duration
}

// Fetcher applies defaults, the request timeout and the eligibility filter
// on top of a Source.
type Fetcher struct {
	source Source
	cfg    Config
	log    *slog.Logger
}

func NewFetcher(source Source, cfg Config, log *slog.Logger) *Fetcher {
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = defaultCountry
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = defaultCategory
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Fetcher{source: source, cfg: cfg, log: log}
}

func (f *Fetcher) Headlines(ctx context.Context, q Query) (Headlines, error) {
	q = f.normalize(q)

	fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := f.source.Headlines(fetchCtx, q)
	if err != nil {
		f.log.WarnContext(ctx, "Failed to fetch headlines",
			"error", err,
			"country", q.Country,
			"category", q.Category,
			"latencyMs", time.Since(start).Milliseconds())

		return Headlines{}, err
	}

	articles := Filter(raw.Articles)

	f.log.InfoContext(ctx, "Headlines are fetched",
		"country", q.Country,
		"category", q.Category,
		"received", len(raw.Articles),
		"eligible", len(articles),
		"totalResults", raw.TotalResults,
		"latencyMs", time.Since(start).Milliseconds())

	return Headlines{Articles: articles, TotalResults: raw.TotalResults}, nil
}

func (f *Fetcher) normalize(q Query) Query {
	q.Country = strings.ToLower(strings.TrimSpace(q.Country))
	if q.Country == "" {
		q.Country = f.cfg.DefaultCountry
	}

	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	if q.Category == "" {
		q.Category = f.cfg.DefaultCategory
	}

	if q.PageSize <= 0 {
		q.PageSize = f.cfg.PageSize
	}
	q.PageSize = min(q.PageSize, maxPageSize)

	return q
}

// Filter cleans body text and drops articles that lack a title or any body.
func Filter(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))

	for _, a := range articles {
		a.Title = textutil.CollapseSpace(a.Title)
		a.Content = textutil.Clean(a.Content)
		a.Description = textutil.Clean(a.Description)
		a.URL = strings.TrimSpace(a.URL)
		a.ImageURL = strings.TrimSpace(a.ImageURL)

		a.Source = strings.TrimSpace(a.Source)
		if a.Source == "" {
			a.Source = domain.UnknownSource
		}

		if !a.Eligible() {
			continue
		}

		out = append(out, a)
	}

	return out
}
