package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"newsrelay/internal/domain"
	"newsrelay/internal/summarizer"
	"newsrelay/internal/upstream"
)

type stubSummarizer struct {
	mu     sync.Mutex
	calls  int
	inputs []summarizer.Input
	fn     func(ctx context.Context, input summarizer.Input) (string, error)
}

func (s *stubSummarizer) Summarize(ctx context.Context, input summarizer.Input) (string, error) {
	s.mu.Lock()
	s.calls++
	s.inputs = append(s.inputs, input)
	s.mu.Unlock()

	if s.fn != nil {
		return s.fn(ctx, input)
	}
	return "summary of " + strings.SplitN(input.Text, ".", 2)[0], nil
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func article(title, content string) domain.Article {
	return domain.Article{
		Title:    title,
		Content:  content,
		Source:   "Wire",
		URL:      "https://example.com/" + strings.ToLower(title),
		ImageURL: "https://example.com/" + strings.ToLower(title) + ".jpg",
	}
}

func TestSummarizeTruncatesSentText(t *testing.T) {
	stub := &stubSummarizer{}
	o := New(stub, Config{}, discardLogger())

	_, err := o.Summarize(context.Background(), []domain.Article{
		{Title: "X", Content: strings.Repeat("Y", 21000)},
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stub.inputs) != 1 {
		t.Fatalf("expected one call, got %d", len(stub.inputs))
	}
	sent := stub.inputs[0].Text
	if n := utf8.RuneCountInString(sent); n != summarizer.MaxInputChars {
		t.Fatalf("expected %d runes, got %d", summarizer.MaxInputChars, n)
	}
	if sent != "X. "+strings.Repeat("Y", 19997) {
		t.Fatalf("unexpected text sent")
	}
}

func TestSummarizeTimeoutFallsBackForOneItem(t *testing.T) {
	stub := &stubSummarizer{
		fn: func(ctx context.Context, input summarizer.Input) (string, error) {
			if strings.HasPrefix(input.Text, "Slow.") {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "ok: " + input.Text, nil
		},
	}
	o := New(stub, Config{Timeout: 50 * time.Millisecond}, discardLogger())

	in := []domain.Article{
		article("Fast", "first body"),
		article("Slow", "second body"),
		article("Quick", "third body"),
	}

	got, err := o.Summarize(context.Background(), in, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}

	for i, r := range got {
		if r.Title != in[i].Title {
			t.Fatalf("result %d out of order: %q", i, r.Title)
		}
	}

	if got[0].Failed() || got[2].Failed() {
		t.Fatalf("expected first and third to succeed: %+v", got)
	}
	if got[0].Summary != "ok: Fast. first body" {
		t.Fatalf("unexpected summary: %q", got[0].Summary)
	}

	slow := got[1]
	if slow.ErrorKind != string(upstream.KindUpstreamTimeout) {
		t.Fatalf("expected timeout fallback, got %+v", slow)
	}
	if slow.URL != in[1].URL || slow.ImageURL != in[1].ImageURL || slow.Source != "Wire" {
		t.Fatalf("expected original fields kept: %+v", slow)
	}
	if slow.Summary == "" {
		t.Fatalf("expected display message in summary field")
	}
}

func TestSummarizeNoEligibleContent(t *testing.T) {
	stub := &stubSummarizer{}
	o := New(stub, Config{}, discardLogger())

	tests := [][]domain.Article{
		nil,
		{{Title: "Only title"}, {Content: "Only content"}, {Title: " ", Description: "x"}},
	}

	for i, in := range tests {
		got, err := o.Summarize(context.Background(), in, "")
		if !errors.Is(err, ErrNoEligibleContent) {
			t.Fatalf("case %d: expected ErrNoEligibleContent, got %v", i, err)
		}
		if upstream.KindOf(err) != upstream.KindNoEligibleContent {
			t.Fatalf("case %d: unexpected kind %s", i, upstream.KindOf(err))
		}
		if got != nil {
			t.Fatalf("case %d: expected nil results", i)
		}
	}

	if stub.callCount() != 0 {
		t.Fatalf("expected zero summarizer calls, got %d", stub.callCount())
	}
}

func TestSummarizeRespectsLimitAndOrder(t *testing.T) {
	stub := &stubSummarizer{}
	o := New(stub, Config{Limit: 3}, discardLogger())

	var in []domain.Article
	for i := range 6 {
		in = append(in, article(fmt.Sprintf("A%d", i), "body"))
		in = append(in, domain.Article{Title: fmt.Sprintf("Empty%d", i)})
	}

	got, err := o.Summarize(context.Background(), in, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i, r := range got {
		want := fmt.Sprintf("A%d", i)
		if r.Title != want || r.Summary != "summary of "+want {
			t.Fatalf("result %d: unexpected %+v", i, r)
		}
	}
	if stub.callCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", stub.callCount())
	}
}

func TestSummarizeFewerThanLimit(t *testing.T) {
	o := New(&stubSummarizer{}, Config{}, discardLogger())

	got, err := o.Summarize(context.Background(), []domain.Article{
		article("One", "body"),
		{Title: "Skip"},
		{Title: "Two", Description: "desc only"},
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected min(N, eligible) = 2 results, got %d", len(got))
	}
}

func TestSummarizeFallbackMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind upstream.Kind
		want string
	}{
		{
			name: "safety block",
			err:  upstream.Classify(upstream.Response{Status: 200, Signal: upstream.SignalSafetyBlocked}),
			kind: upstream.KindContentBlocked,
			want: "safety",
		},
		{
			name: "quota",
			err:  upstream.Classify(upstream.Response{Status: 429}),
			kind: upstream.KindRateLimited,
			want: "quota",
		},
		{
			name: "untyped error",
			err:  errors.New("boom"),
			kind: upstream.KindUpstreamUnknown,
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSummarizer{
				fn: func(ctx context.Context, input summarizer.Input) (string, error) {
					return "", tt.err
				},
			}
			o := New(stub, Config{}, discardLogger())

			got, err := o.Summarize(context.Background(), []domain.Article{article("A", "body")}, "")
			if err != nil {
				t.Fatalf("item failures must not fail the batch: %v", err)
			}
			if got[0].ErrorKind != string(tt.kind) {
				t.Fatalf("expected kind %s, got %s", tt.kind, got[0].ErrorKind)
			}
			if !strings.Contains(strings.ToLower(got[0].Summary), tt.want) {
				t.Fatalf("expected message mentioning %q, got %q", tt.want, got[0].Summary)
			}
		})
	}
}

func TestSummarizePassesLanguage(t *testing.T) {
	stub := &stubSummarizer{}
	o := New(stub, Config{}, discardLogger())

	if _, err := o.Summarize(context.Background(), []domain.Article{article("A", "b")}, "Spanish"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.inputs[0].Language != "Spanish" {
		t.Fatalf("expected language passed through, got %q", stub.inputs[0].Language)
	}
}

func TestSummarizeText(t *testing.T) {
	stub := &stubSummarizer{}
	o := New(stub, Config{}, discardLogger())

	long := strings.Repeat("é", summarizer.MaxInputChars+50)
	if _, err := o.SummarizeText(context.Background(), long, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := utf8.RuneCountInString(stub.inputs[0].Text); n != summarizer.MaxInputChars {
		t.Fatalf("expected %d runes, got %d", summarizer.MaxInputChars, n)
	}

	stub.fn = func(ctx context.Context, input summarizer.Input) (string, error) {
		return "", upstream.Classify(upstream.Response{Status: 429})
	}
	_, err := o.SummarizeText(context.Background(), "text", "")
	if upstream.KindOf(err) != upstream.KindRateLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}
}
