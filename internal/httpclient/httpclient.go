package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "newsrelay/1.0"

// Client is the subset of HTTP calls the upstream adapters make.
type Client interface {
	Get(ctx context.Context, url string, query, headers map[string]string) (*resty.Response, error)
	PostJSON(ctx context.Context, url string, query, headers map[string]string, body any) (*resty.Response, error)
}

// RestyClient implements Client. It never retries.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient builds a client whose overall per-request timeout is
// timeout. Callers still pass their own deadline through ctx.
func NewRestyClient(timeout time.Duration) *RestyClient {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)

	return &RestyClient{client: c}
}

func (c *RestyClient) Get(
	ctx context.Context,
	url string,
	query map[string]string,
	headers map[string]string,
) (*resty.Response, error) {
	return c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetHeaders(headers).
		Get(url)
}

func (c *RestyClient) PostJSON(
	ctx context.Context,
	url string,
	query map[string]string,
	headers map[string]string,
	body any,
) (*resty.Response, error) {
	return c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetHeaders(headers).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
}
