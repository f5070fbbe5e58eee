package aigateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/storefront/domain/model"
)

const maxResponseBytes = 1 << 20

type Config struct {
	URL            string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     uint64
	InitialBackoff time.Duration
}

// Client calls the generative-AI gateway. Server errors and timeouts are
// retried with exponential backoff; 429 and 402 are returned immediately.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

type generateRequest struct {
	Kind           model.ContentKind `json:"kind"`
	Prompt         string            `json:"prompt"`
	ResponseSchema json.RawMessage   `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Output json.RawMessage `json:"output"`
}

func (c *Client) Generate(ctx context.Context, req model.GenerationRequest) (json.RawMessage, error) {
	body, err := json.Marshal(generateRequest{Kind: req.Kind, Prompt: req.Prompt, ResponseSchema: req.Schema})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode generation request")
	}

	var output json.RawMessage
	attempt := 0
	operation := func() error {
		attempt++
		out, err := c.call(ctx, body)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"kind": req.Kind, "attempt": attempt}).Warn("content gateway call failed")
			return err
		}
		output = out
		return nil
	}

	if err := backoff.Retry(operation, c.backOff(ctx)); err != nil {
		if errors.Is(err, model.ErrRateLimited) || errors.Is(err, model.ErrQuotaExceeded) || errors.Is(err, model.ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, errors.Wrap(model.ErrUpstreamUnavailable, err.Error())
	}
	return output, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxElapsedTime = 2 * c.cfg.Timeout
	return backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)
}

func (c *Client) call(ctx context.Context, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, "failed to build gateway request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(errors.Wrap(model.ErrUpstreamUnavailable, ctx.Err().Error()))
		}
		return nil, errors.Wrap(model.ErrUpstreamUnavailable, err.Error())
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(model.ErrUpstreamUnavailable, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, backoff.Permanent(errors.Wrap(model.ErrRateLimited, "content gateway rate limit reached"))
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, backoff.Permanent(errors.Wrap(model.ErrQuotaExceeded, "content gateway credits exhausted"))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Wrapf(model.ErrUpstreamUnavailable, "content gateway responded %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(errors.Wrapf(model.ErrUpstreamUnavailable, "content gateway rejected request: %d %s", resp.StatusCode, truncate(payload)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil || len(decoded.Output) == 0 {
		return nil, backoff.Permanent(errors.Wrap(model.ErrUpstreamUnavailable, "content gateway returned no structured output"))
	}
	return decoded.Output, nil
}

func truncate(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:limit])
}
