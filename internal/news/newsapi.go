package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"newsrelay/internal/domain"
	"newsrelay/internal/httpclient"
	"newsrelay/internal/textutil"
	"newsrelay/internal/upstream"
)

const (
	NewsAPIBaseURL = "https://newsapi.org/v2"
	snippetLen     = 512
)

// NewsAPI is a Source backed by the newsapi.org top-headlines endpoint.
type NewsAPI struct {
	client  httpclient.Client
	baseURL string
	apiKey  string
}

func NewNewsAPI(client httpclient.Client, baseURL, apiKey string) *NewsAPI {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = NewsAPIBaseURL
	}

	return &NewsAPI{client: client, baseURL: baseURL, apiKey: apiKey}
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

func (n *NewsAPI) Headlines(ctx context.Context, q Query) (Headlines, error) {
	query := map[string]string{
		"country":  q.Country,
		"category": q.Category,
	}
	if q.PageSize > 0 {
		query["pageSize"] = strconv.Itoa(q.PageSize)
	}

	resp, err := n.client.Get(ctx, n.baseURL+"/top-headlines", query, map[string]string{
		"X-Api-Key": n.apiKey,
	})
	if err != nil {
		return Headlines{}, upstream.FromTransport(err)
	}

	status := resp.StatusCode()
	body := resp.Body()

	var payload newsAPIResponse
	decodeErr := json.Unmarshal(body, &payload)

	if status >= http.StatusBadRequest {
		detail := errorDetail(payload)
		if decodeErr != nil || detail == "" {
			detail = textutil.Snippet(body, snippetLen)
		}
		return Headlines{}, upstream.Rejected(status, detail)
	}

	if decodeErr != nil {
		return Headlines{}, upstream.Rejected(status, fmt.Sprintf("decode response: %v", decodeErr))
	}

	if strings.EqualFold(payload.Status, "error") {
		return Headlines{}, upstream.Rejected(status, errorDetail(payload))
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		articles = append(articles, domain.Article{
			Title:       item.Title,
			Description: item.Description,
			Content:     item.Content,
			Source:      item.Source.Name,
			URL:         item.URL,
			ImageURL:    item.URLToImage,
			PublishedAt: parsePublishedAt(item.PublishedAt),
		})
	}

	return Headlines{Articles: articles, TotalResults: payload.TotalResults}, nil
}

func errorDetail(payload newsAPIResponse) string {
	code := strings.TrimSpace(payload.Code)
	msg := strings.TrimSpace(payload.Message)

	switch {
	case code != "" && msg != "":
		return code + ": " + msg
	case msg != "":
		return msg
	default:
		return code
	}
}

func parsePublishedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}

	return time.Time{}
}

