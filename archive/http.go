package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/p2pclaw/hive/lib"
)

// ArchiverI interface enforcement
var _ ArchiverI = &HTTPArchiver{}

const maxResponseBytes = 64 * 1024

// HTTPArchiver pins content on a remote content-addressed storage service
type HTTPArchiver struct {
	client   *http.Client
	endpoint string
	config   lib.ArchiveConfig
	metrics  *lib.Metrics
	log      lib.LoggerI
}

// pinRequest is the body posted to the pinning endpoint
type pinRequest struct {
	Content string `json:"content"`
	CID     string `json:"cid,omitempty"` // the locally computed identifier, lets the service verify the upload
}

// pinResponse is the body the pinning endpoint answers with
type pinResponse struct {
	CID string `json:"cid"`
}

// NewHTTPArchiver() creates an archiver for the configured endpoint
func NewHTTPArchiver(config lib.ArchiveConfig, metrics *lib.Metrics, log lib.LoggerI) *HTTPArchiver {
	return &HTTPArchiver{
		client:   &http.Client{Timeout: time.Duration(config.AttemptTimeoutS) * time.Second},
		endpoint: config.Endpoint,
		config:   config,
		metrics:  metrics,
		log:      log,
	}
}

// Archive() pins the content with bounded linear backoff; failures are logged and reported as ""
func (h *HTTPArchiver) Archive(ctx context.Context, content string) (cid string) {
	local, _ := ContentID([]byte(content))
	body, err := lib.MarshalJSON(pinRequest{Content: content, CID: local})
	if err != nil {
		h.log.Errorf("Archive request encoding failed with err: %s", err.Error())
		return ""
	}
	attempt := 0
	operation := func() error {
		attempt++
		c, e := h.pin(ctx, body)
		if e != nil {
			h.log.Warnf("Archive attempt %d failed with err: %s", attempt, e.Error())
			return e
		}
		cid = c
		return nil
	}
	if e := backoff.Retry(operation, h.policy(ctx)); e != nil {
		h.metrics.IncArchiveFailure()
		h.log.Errorf("Archive gave up after %d attempts: %s", attempt, e.Error())
		return ""
	}
	return cid
}

// pin() executes a single upload
func (h *HTTPArchiver) pin(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(ErrArchiveFailed(err))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return "", ErrArchiveFailed(err)
	}
	defer resp.Body.Close()
	bz, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", ErrArchiveFailed(err)
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrArchiveResponse(resp.StatusCode, string(bz))
	case resp.StatusCode >= 300:
		// the request itself is wrong; retrying cannot help
		return "", backoff.Permanent(ErrArchiveResponse(resp.StatusCode, string(bz)))
	}
	out := new(pinResponse)
	if err = json.Unmarshal(bz, out); err != nil || out.CID == "" {
		if err == nil {
			err = errors.New("empty cid")
		}
		return "", backoff.Permanent(ErrArchiveFailed(err))
	}
	return out.CID, nil
}

// policy() builds the retry schedule: MaxAttempts in total, waiting step, 2*step, 3*step... between them
func (h *HTTPArchiver) policy(ctx context.Context) backoff.BackOff {
	retries := uint64(0)
	if h.config.MaxAttempts > 1 {
		retries = h.config.MaxAttempts - 1
	}
	step := time.Duration(h.config.BackoffStepMS) * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{step: step}, retries), ctx)
}

// linearBackOff waits one more step after every failure
type linearBackOff struct {
	step time.Duration
	n    int64
}

// NextBackOff() returns the next wait
func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	return time.Duration(l.n) * l.step
}

// Reset() restarts the schedule
func (l *linearBackOff) Reset() { l.n = 0 }
