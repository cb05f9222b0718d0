package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsrelay/internal/domain"
	"newsrelay/internal/upstream"

	"github.com/mmcdole/gofeed"
)

const GoogleNewsRSSBaseURL = "https://news.google.com/rss"

var rssTopics = map[string]string{
	"business":      "BUSINESS",
	"entertainment": "ENTERTAINMENT",
	"health":        "HEALTH",
	"science":       "SCIENCE",
	"sports":        "SPORTS",
	"technology":    "TECHNOLOGY",
}

// RSS is a Source backed by a Google-News-style RSS feed.
type RSS struct {
	parser  *gofeed.Parser
	baseURL string
}

func NewRSS(baseURL string, timeout time.Duration) *RSS {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = GoogleNewsRSSBaseURL
	}

	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = "newsrelay/1.0"

	return &RSS{parser: p, baseURL: baseURL}
}

func (r *RSS) Headlines(ctx context.Context, q Query) (Headlines, error) {
	feedURL := r.feedURL(q)

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return Headlines{}, upstream.Rejected(httpErr.StatusCode, httpErr.Status)
		}
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return Headlines{}, upstream.Rejected(http.StatusOK, fmt.Sprintf("parse feed: %v", err))
		}
		return Headlines{}, upstream.FromTransport(err)
	}

	items := feed.Items
	if q.PageSize > 0 && len(items) > q.PageSize {
		items = items[:q.PageSize]
	}

	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		articles = append(articles, rssArticle(feed, item))
	}

	return Headlines{Articles: articles, TotalResults: len(feed.Items)}, nil
}

func (r *RSS) feedURL(q Query) string {
	country := strings.ToUpper(q.Country)
	if country == "" {
		country = strings.ToUpper(defaultCountry)
	}

	params := url.Values{}
	params.Set("hl", "en-"+country)
	params.Set("gl", country)
	params.Set("ceid", country+":en")

	if topic, ok := rssTopics[q.Category]; ok {
		return r.baseURL + "/headlines/section/topic/" + topic + "?" + params.Encode()
	}

	return r.baseURL + "?" + params.Encode()
}

// rssArticle maps a feed item. Google News titles end in " - Publisher".
func rssArticle(feed *gofeed.Feed, item *gofeed.Item) domain.Article {
	title := strings.TrimSpace(item.Title)
	source := ""
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		source = strings.TrimSpace(title[idx+3:])
		title = strings.TrimSpace(title[:idx])
	}
	if source == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
		source = item.Authors[0].Name
	}
	if source == "" {
		source = feed.Title
	}

	var publishedAt time.Time
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		publishedAt = *item.UpdatedParsed
	}

	return domain.Article{
		Title:       title,
		Description: item.Description,
		Content:     item.Content,
		Source:      source,
		URL:         item.Link,
		ImageURL:    rssImageURL(item),
		PublishedAt: publishedAt,
	}
}

func rssImageURL(item *gofeed.Item) string {
	if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
		return strings.TrimSpace(item.Image.URL)
	}

	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}

	return ""
}
