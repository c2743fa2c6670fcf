package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderSignature   = "X-Webhook-Signature"
	HeaderTimestamp   = "X-Webhook-Timestamp"
	HeaderContentType = "Content-Type"
	HeaderUserAgent   = "User-Agent"

	contentTypeJSON = "application/json"
)

// AttemptExecutor performs one HTTP POST attempt against one endpoint with
// signed headers and a bounded timeout. It has no knowledge of retry
// bookkeeping; callers interpret the outcome.
type AttemptExecutor struct {
	Client    HTTPDoer
	Signer    PayloadSigner
	Timeout   time.Duration
	UserAgent string
	BodyLimit int
	Now       func() time.Time
}

func NewAttemptExecutor(client HTTPDoer, signer PayloadSigner) *AttemptExecutor {
	return &AttemptExecutor{
		Client:    client,
		Signer:    signer,
		Timeout:   10 * time.Second,
		UserAgent: "go-webhooks/1.0",
		BodyLimit: 2048,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Execute POSTs payload to url, signing the exact bytes transmitted.
// Transport errors and non-2xx responses both come back as a populated
// outcome; the returned error is reserved for caller misuse.
func (e *AttemptExecutor) Execute(ctx context.Context, url string, payload []byte, secret string) (AttemptOutcome, error) {
	if e == nil || e.Client == nil || e.Signer == nil {
		return AttemptOutcome{}, fmt.Errorf("core: attempt executor requires client and signer")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return AttemptOutcome{}, fmt.Errorf("core: endpoint url is required")
	}

	attemptCtx := ctx
	if e.timeout() > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.timeout())
		defer cancel()
	}

	startedAt := e.now()
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return AttemptOutcome{
			Err:         fmt.Errorf("core: build delivery request: %w", err),
			CompletedAt: e.now(),
		}, nil
	}
	req.Header.Set(HeaderContentType, contentTypeJSON)
	req.Header.Set(HeaderUserAgent, e.userAgent())
	req.Header.Set(HeaderSignature, e.Signer.Sign(payload, secret))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(startedAt.UnixMilli(), 10))

	resp, err := e.Client.Do(req)
	elapsed := e.now().Sub(startedAt).Milliseconds()
	if err != nil {
		return AttemptOutcome{
			ResponseTimeMs: elapsed,
			Err:            err,
			CompletedAt:    e.now(),
		}, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, int64(e.bodyLimit())))
	outcome := AttemptOutcome{
		HTTPStatus:     resp.StatusCode,
		ResponseBody:   string(body),
		ResponseTimeMs: elapsed,
		CompletedAt:    e.now(),
	}
	if !outcome.Succeeded() {
		outcome.Err = fmt.Errorf("core: endpoint responded with status %d", resp.StatusCode)
	}
	return outcome, nil
}

func (e *AttemptExecutor) timeout() time.Duration {
	if e != nil && e.Timeout > 0 {
		return e.Timeout
	}
	return 10 * time.Second
}

func (e *AttemptExecutor) userAgent() string {
	if e != nil && strings.TrimSpace(e.UserAgent) != "" {
		return strings.TrimSpace(e.UserAgent)
	}
	return "go-webhooks/1.0"
}

func (e *AttemptExecutor) bodyLimit() int {
	if e != nil && e.BodyLimit > 0 {
		return e.BodyLimit
	}
	return 2048
}

func (e *AttemptExecutor) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}
