package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind is the stable failure vocabulary shared with the HTTP layer.
type Kind string

const (
	KindContentBlocked      Kind = "content_blocked"
	KindOutputTruncated     Kind = "output_truncated"
	KindEmptyResponse       Kind = "empty_response"
	KindRateLimited         Kind = "rate_limited"
	KindModelUnavailable    Kind = "model_unavailable"
	KindInvalidRequest      Kind = "invalid_request"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamRejected    Kind = "upstream_rejected"
	KindUpstreamUnknown     Kind = "upstream_unknown"
	KindNoEligibleContent   Kind = "no_eligible_content"
)

// Signal is a content-level outcome read from an upstream payload.
type Signal int

const (
	SignalNone Signal = iota
	SignalSafetyBlocked
	SignalMaxTokens
	SignalEmpty
)

func (s Signal) String() string {
	switch s {
	case SignalSafetyBlocked:
		return "safety_blocked"
	case SignalMaxTokens:
		return "max_tokens"
	case SignalEmpty:
		return "empty"
	default:
		return "none"
	}
}

// Response is everything the mapper needs to know about a completed upstream exchange.
type Response struct {
	Status int
	Signal Signal
	// Message is the upstream error text, kept verbatim.
	Message string
}

// Error is a classified upstream failure.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status = %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind with its display message.
func New(kind Kind, status int, detail string, err error) *Error {
	return &Error{
		Kind:    kind,
		Status:  status,
		Message: message(kind, detail),
		Detail:  detail,
		Err:     err,
	}
}

// Classify maps a completed upstream exchange to an Error, or nil when the
// exchange carries no failure signal. Content-level signals win over the
// status code.
func Classify(resp Response) *Error {
	detail := strings.TrimSpace(resp.Message)

	switch {
	case resp.Signal == SignalSafetyBlocked || blockedForSafety(detail):
		return New(KindContentBlocked, resp.Status, detail, nil)
	case resp.Signal == SignalMaxTokens:
		return New(KindOutputTruncated, resp.Status, detail, nil)
	case resp.Signal == SignalEmpty && resp.Status < http.StatusBadRequest:
		return New(KindEmptyResponse, resp.Status, detail, nil)
	}

	switch {
	case resp.Status == http.StatusTooManyRequests:
		return New(KindRateLimited, resp.Status, detail, nil)
	case resp.Status == http.StatusNotFound:
		return New(KindModelUnavailable, resp.Status, detail, nil)
	case resp.Status == http.StatusBadRequest:
		return New(KindInvalidRequest, resp.Status, detail, nil)
	case resp.Status >= http.StatusBadRequest:
		return New(KindUpstreamUnknown, resp.Status, detail, nil)
	}

	if resp.Signal == SignalEmpty {
		return New(KindEmptyResponse, resp.Status, detail, nil)
	}

	return nil
}

// Rejected is used by the news side where any 4xx/5xx is passed through.
func Rejected(status int, detail string) *Error {
	return New(KindUpstreamRejected, status, strings.TrimSpace(detail), nil)
}

// Malformed reports a payload that could not be decoded at all.
func Malformed(status int, err error) *Error {
	return New(KindUpstreamUnknown, status, "malformed upstream response", err)
}

// FromTransport classifies an error returned before any response was read.
func FromTransport(err error) *Error {
	if err == nil {
		return nil
	}

	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindUpstreamTimeout, 0, "", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return New(KindUpstreamTimeout, 0, "", err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) ||
		errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return New(KindUpstreamUnavailable, 0, "", err)
	}

	return New(KindUpstreamUnknown, 0, err.Error(), err)
}

// KindOf returns the kind of a classified error, UpstreamUnknown otherwise.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUpstreamUnknown
}

// Describe returns a message suitable for direct display.
func Describe(err error) string {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Message
	}
	if err == nil {
		return ""
	}
	return message(KindUpstreamUnknown, err.Error())
}

// HTTPStatus is the downstream status for a failure.
func HTTPStatus(err error) int {
	var ue *Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError
	}

	switch ue.Kind {
	case KindNoEligibleContent:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindContentBlocked:
		return http.StatusUnprocessableEntity
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamRejected:
		if ue.Status >= http.StatusBadRequest && ue.Status <= 599 {
			return ue.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// blockedForSafety reports an error message that names a safety block,
// e.g. "Request blocked: SAFETY". A bare mention of a safety field is not one.
func blockedForSafety(detail string) bool {
	d := strings.ToLower(detail)
	_, after, found := strings.Cut(d, "blocked")
	return found && strings.Contains(after, "safety")
}

func message(kind Kind, detail string) string {
	switch kind {
	case KindContentBlocked:
		return "Summary unavailable: the content was blocked by the provider's safety filter."
	case KindOutputTruncated:
		return "Summary unavailable: the generated text hit the output length limit before it was finished."
	case KindEmptyResponse:
		return "Summary unavailable: the summarization service returned no text."
	case KindRateLimited:
		return "Summary unavailable: the summarization quota has been exceeded, please try again later."
	case KindModelUnavailable:
		return "Summary unavailable: the configured summarization model was not found or is not supported."
	case KindInvalidRequest:
		return "Summary unavailable: the summarization request was rejected as invalid."
	case KindUpstreamTimeout:
		return "The upstream service did not respond in time."
	case KindUpstreamUnavailable:
		return "The upstream service could not be reached."
	case KindUpstreamRejected:
		if detail != "" {
			return "The news service rejected the request: " + detail
		}
		return "The news service rejected the request."
	case KindNoEligibleContent:
		return "No articles with usable content were found."
	default:
		if detail != "" {
			return "Summary unavailable: " + detail
		}
		return "Summary unavailable due to an unexpected upstream error."
	}
}
