package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyPrefersContentSignals(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want Kind
	}{
		{"safety over 400", Response{Status: http.StatusBadRequest, Signal: SignalSafetyBlocked}, KindContentBlocked},
		{"safety token in message", Response{Status: http.StatusBadRequest, Message: "blocked due to SAFETY"}, KindContentBlocked},
		{"max tokens", Response{Status: http.StatusOK, Signal: SignalMaxTokens}, KindOutputTruncated},
		{"empty", Response{Status: http.StatusOK, Signal: SignalEmpty}, KindEmptyResponse},
		{"rate limit", Response{Status: http.StatusTooManyRequests, Message: "quota"}, KindRateLimited},
		{"model", Response{Status: http.StatusNotFound}, KindModelUnavailable},
		{"invalid", Response{Status: http.StatusBadRequest, Message: "bad field"}, KindInvalidRequest},
		{"safety field name is not a block", Response{Status: http.StatusBadRequest, Message: `Unknown name "safetySettings": Cannot find field.`}, KindInvalidRequest},
		{"server error", Response{Status: http.StatusInternalServerError, Message: "boom"}, KindUpstreamUnknown},
		{"empty body on 503", Response{Status: http.StatusServiceUnavailable, Signal: SignalEmpty}, KindUpstreamUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.resp)
			if got == nil {
				t.Fatalf("expected error, got nil")
			}
			if got.Kind != tt.want {
				t.Fatalf("kind mismatch: got %s want %s", got.Kind, tt.want)
			}
			if got.Message == "" {
				t.Fatalf("expected display message")
			}
		})
	}
}

func TestClassifyOK(t *testing.T) {
	if got := Classify(Response{Status: http.StatusOK}); got != nil {
		t.Fatalf("expected nil for clean 200, got %v", got)
	}
}

func TestClassifyKeepsUpstreamMessageVerbatim(t *testing.T) {
	got := Classify(Response{Status: http.StatusBadGateway, Message: "  upstream exploded  "})
	if got.Detail != "upstream exploded" {
		t.Fatalf("unexpected detail: %q", got.Detail)
	}
	if !strings.Contains(got.Message, "upstream exploded") {
		t.Fatalf("expected message to carry upstream text, got %q", got.Message)
	}
}

func TestRateLimitedMessageMentionsQuota(t *testing.T) {
	got := Classify(Response{Status: http.StatusTooManyRequests})
	if !strings.Contains(got.Message, "quota") {
		t.Fatalf("expected quota message, got %q", got.Message)
	}
}

func TestContentBlockedMessageMentionsSafety(t *testing.T) {
	got := Classify(Response{Status: http.StatusOK, Signal: SignalSafetyBlocked})
	if !strings.Contains(got.Message, "safety") {
		t.Fatalf("expected safety message, got %q", got.Message)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", fmt.Errorf("do request: %w", context.DeadlineExceeded), KindUpstreamTimeout},
		{"net timeout", timeoutErr{}, KindUpstreamTimeout},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, KindUpstreamUnavailable},
		{"dns", &net.DNSError{Err: "no such host", Name: "example.invalid"}, KindUpstreamUnavailable},
		{"other", errors.New("weird"), KindUpstreamUnknown},
		{"already classified", New(KindRateLimited, 429, "", nil), KindRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromTransport(tt.err)
			if got.Kind != tt.want {
				t.Fatalf("kind mismatch: got %s want %s", got.Kind, tt.want)
			}
		})
	}

	if FromTransport(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestKindOfAndDescribeOnWrappedErrors(t *testing.T) {
	err := fmt.Errorf("summarize: %w", New(KindOutputTruncated, 200, "", nil))

	if KindOf(err) != KindOutputTruncated {
		t.Fatalf("unexpected kind: %s", KindOf(err))
	}
	if Describe(err) == "" {
		t.Fatalf("expected description")
	}
	if KindOf(errors.New("plain")) != KindUpstreamUnknown {
		t.Fatalf("expected plain errors to be unknown")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(KindNoEligibleContent, 0, "", nil), http.StatusNotFound},
		{New(KindRateLimited, 429, "", nil), http.StatusTooManyRequests},
		{New(KindUpstreamTimeout, 0, "", nil), http.StatusGatewayTimeout},
		{Rejected(http.StatusUnauthorized, "apiKeyInvalid"), http.StatusUnauthorized},
		{Rejected(http.StatusOK, "status error"), http.StatusBadGateway},
		{New(KindEmptyResponse, 200, "", nil), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
