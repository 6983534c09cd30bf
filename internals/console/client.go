// file: internals/console/client.go
package console

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"tutorhub_backend/internals/helpers/cache"
)

const maxBody = 8 << 20

// TokenSource returns the bearer token of the current session, "" when signed out.
type TokenSource func() string

// Client talks to /api/payments. Reads are cached by key and tag; successful
// mutations invalidate tags and never fall back.
type Client struct {
	BaseURL string // API root, e.g. https://api.tutorhub.id/api
	Token   TokenSource
	HTTP    *http.Client
	Cache   cache.Store
	TTL     time.Duration
	Policy  FallbackPolicy

	fallbacks *Fallbacks
}

func New(baseURL string, token TokenSource) (*Client, error) {
	fb, err := LoadFallbacks()
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		Cache:     cache.NewMemoryStore(),
		TTL:       time.Minute,
		Policy:    FailOpen,
		fallbacks: fb,
	}, nil
}

// WithPolicy returns a client sharing this one's cache but using p for reads.
func (c *Client) WithPolicy(p FallbackPolicy) *Client {
	cp := *c
	cp.Policy = p
	return &cp
}

// Fallbacks exposes the bundled payloads.
func (c *Client) Fallbacks() *Fallbacks { return c.fallbacks }

/* ===============================
   Wire envelope
=================================*/

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type errorEnvelope struct {
	Message   string              `json:"message"`
	ErrorCode string              `json:"error_code"`
	Errors    map[string][]string `json:"errors"`
}

// do sends one request and returns the raw success body.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, body any) ([]byte, *FetchError) {
	u := c.BaseURL + "/payments" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rd io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return nil, &FetchError{Op: op, Err: errors.Wrap(err, "encode body")}
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != nil {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &FetchError{Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "read body")}
	}

	if resp.StatusCode >= 400 {
		fe := &FetchError{Op: op, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e errorEnvelope
		if sonic.Unmarshal(raw, &e) == nil && e.Message != "" {
			fe.Message, fe.Code, fe.Fields = e.Message, e.ErrorCode, e.Errors
		}
		return nil, fe
	}
	return raw, nil
}

func decode[T any](op string, raw []byte) (T, *FetchError) {
	var env envelope[T]
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return env.Data, &FetchError{Op: op, Status: http.StatusOK, Err: errors.Wrap(err, "decode response")}
	}
	return env.Data, nil
}

// fetch runs a cached read. On failure the policy decides between the
// fallback payload and a bare error; fallback data is never cached.
func fetch[T any](ctx context.Context, c *Client, op, path string, params url.Values, tags []string, fb func(*Fallbacks) (T, bool)) Result[T] {
	key := op
	if len(params) > 0 {
		key += "?" + params.Encode()
	}

	v, err := cache.Remember(ctx, c.Cache, "console:"+key, c.TTL, tags, func() (T, error) {
		var zero T
		raw, fe := c.do(ctx, op, http.MethodGet, path, params, nil)
		if fe != nil {
			return zero, fe
		}
		out, fe := decode[T](op, raw)
		if fe != nil {
			return zero, fe
		}
		return out, nil
	})
	if err == nil {
		return live(v)
	}

	fe := asFetchError(op, err)
	log.Printf("[CONSOLE] %s failed: %v", op, fe)
	if c.Policy == FailOpen && fb != nil && c.fallbacks != nil {
		if data, ok := fb(c.fallbacks); ok {
			return Result[T]{Data: data, Source: SourceFallback, Err: fe}
		}
	}
	return Result[T]{Err: fe}
}

// mutate sends a write and invalidates tags when it succeeds.
func mutate[T any](ctx context.Context, c *Client, op, method, path string, body any, tags ...string) (T, error) {
	var zero T
	raw, fe := c.do(ctx, op, method, path, nil, body)
	if fe == nil {
		var out T
		if out, fe = decode[T](op, raw); fe == nil {
			cache.Invalidate(ctx, c.Cache, tags...)
			return out, nil
		}
	}
	log.Printf("[CONSOLE] %s failed: %v", op, fe)
	return zero, fe
}

func asFetchError(op string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Op: op, Err: err}
}
