// Package source fetches posts from the upstream REST endpoint.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/motemen/go-loghttp"

	"github.com/kingrea/postscribe/internal/post"
)

// DefaultURL is the public endpoint used when nothing else is configured.
const DefaultURL = "https://jsonplaceholder.typicode.com/posts"

// maxBodyBytes bounds how much of the upstream response is read.
const maxBodyBytes = 16 << 20

// Fetcher returns the first n posts of the upstream listing.
type Fetcher interface {
	Fetch(ctx context.Context, n int) ([]post.Post, error)
}

// Client performs one GET against the posts endpoint per Fetch.
type Client struct {
	URL    string
	HTTP   *http.Client
	schema *openapi3.Schema
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger logs every request and response through logf.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Client) {
		if logf == nil {
			return
		}
		c.HTTP.Transport = &loghttp.Transport{
			Transport: c.HTTP.Transport,
			LogRequest: func(req *http.Request) {
				logf("http: --> %s %s", req.Method, req.URL)
			},
			LogResponse: func(resp *http.Response) {
				logf("http: <-- %d %s", resp.StatusCode, resp.Request.URL)
			},
		}
	}
}

// New builds a client for url with an overall request timeout.
func New(url string, timeout time.Duration, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		URL: url,
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		schema: listingSchema(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch issues the GET, checks the payload shape and returns at most n posts.
// n <= 0 returns the whole listing. Every failure is a *FetchError.
func (c *Client) Fetch(ctx context.Context, n int) ([]post.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, c.fail("request", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, c.fail("request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail("status", fmt.Errorf("upstream returned %s", resp.Status))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail("read", err)
	}

	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, c.fail("decode", err)
	}
	if err := c.schema.VisitJSON(generic); err != nil {
		return nil, c.fail("validate", err)
	}
	var posts []post.Post
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, c.fail("decode", err)
	}
	if n > 0 && len(posts) > n {
		posts = posts[:n]
	}
	return posts, nil
}

func (c *Client) fail(op string, err error) error {
	return &FetchError{URL: c.URL, Op: op, Err: err}
}

// listingSchema describes the upstream payload: an array of objects with an
// integer id and string title and body.
func listingSchema() *openapi3.Schema {
	item := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewIntegerSchema()).
		WithProperty("userId", openapi3.NewIntegerSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("body", openapi3.NewStringSchema())
	item.Required = []string{"id", "title", "body"}
	return openapi3.NewArraySchema().WithItems(item)
}
