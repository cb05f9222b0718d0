package domain

import (
	"strings"
	"time"
)

const UnknownSource = "Unknown"

type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Body prefers content over description.
func (a Article) Body() string {
	if content := strings.TrimSpace(a.Content); content != "" {
		return content
	}
	return strings.TrimSpace(a.Description)
}

// Eligible reports whether the article has a title and some body text.
func (a Article) Eligible() bool {
	return strings.TrimSpace(a.Title) != "" && a.Body() != ""
}

// SummaryText is what gets sent for summarization before truncation.
func (a Article) SummaryText() string {
	return strings.TrimSpace(a.Title) + ". " + a.Body()
}

type SummarizedArticle struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Summary     string    `json:"summary"`
	// ErrorKind is set only on fallback results.
	ErrorKind string `json:"error,omitempty"`
}

func (s SummarizedArticle) Failed() bool {
	return s.ErrorKind != ""
}

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Country      string    `json:"country,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
