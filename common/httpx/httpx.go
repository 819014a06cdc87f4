package httpx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/config"
)

// Client wraps http.Client with a host allowlist, retries and a circuit
// breaker per target host.
type Client struct {
	hc       *http.Client
	opt      Options
	breakers sync.Map // host -> *breaker
}

type breaker struct {
	fail      int32 // consecutive failures
	openUntil int64 // unix nanos for circuit open deadline
}

func (c *Client) breakerFor(host string) *breaker {
	if b, ok := c.breakers.Load(host); ok {
		return b.(*breaker)
	}
	b, _ := c.breakers.LoadOrStore(host, &breaker{})
	return b.(*breaker)
}

type Options struct {
	Timeout            time.Duration
	Retry              int
	BackoffMin         time.Duration
	BackoffMax         time.Duration
	HostAllowlist      []string
	MaxConsecutiveFail int
	CircuitOpen        time.Duration
}

var (
	ErrCircuitOpen    = errors.New("circuit open")
	ErrHostNotAllowed = errors.New("host not allowed")
)

// NewFromConfig builds a client; a nil config yields the defaults
// (30s timeout, no retries).
func NewFromConfig(cfg *config.HTTPClientConfig) *Client {
	opt := Options{
		Timeout:            30 * time.Second,
		BackoffMin:         100 * time.Millisecond,
		BackoffMax:         800 * time.Millisecond,
		MaxConsecutiveFail: 5,
		CircuitOpen:        5 * time.Second,
	}
	if cfg != nil {
		if cfg.TimeoutMs > 0 {
			opt.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
		}
		if cfg.Retry > 0 {
			opt.Retry = cfg.Retry
		}
		if cfg.BackoffMinMs > 0 {
			opt.BackoffMin = time.Duration(cfg.BackoffMinMs) * time.Millisecond
		}
		if cfg.BackoffMaxMs > 0 {
			opt.BackoffMax = time.Duration(cfg.BackoffMaxMs) * time.Millisecond
		}
		if cfg.MaxConsecutiveFailures > 0 {
			opt.MaxConsecutiveFail = cfg.MaxConsecutiveFailures
		}
		if cfg.CircuitOpenSeconds > 0 {
			opt.CircuitOpen = time.Duration(cfg.CircuitOpenSeconds) * time.Second
		}
		opt.HostAllowlist = cfg.HostAllowlist
	}
	if opt.BackoffMax < opt.BackoffMin {
		opt.BackoffMax = opt.BackoffMin
	}

	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		DialContext:     (&net.Dialer{Timeout: opt.Timeout}).DialContext,
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:    100,
		IdleConnTimeout: 30 * time.Second,
	}
	return &Client{
		hc:  &http.Client{Timeout: opt.Timeout, Transport: transport},
		opt: opt,
	}
}

func (c *Client) allowed(u *url.URL) bool {
	if len(c.opt.HostAllowlist) == 0 {
		return true
	}
	host := u.Hostname()
	for _, h := range c.opt.HostAllowlist {
		if matchHost(h, host) {
			return true
		}
	}
	return false
}

func matchHost(pattern, host string) bool {
	if pattern == "*" {
		return true
	}
	if strings.EqualFold(pattern, host) {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suf := strings.TrimPrefix(pattern, "*.")
		return strings.HasSuffix(host, "."+suf) || host == suf
	}
	return false
}

// Do sends req. Transport errors and 5xx responses are retried up to
// Options.Retry times; a final 5xx response is returned to the caller
// unchanged so it can report the status.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	target := redact(req.URL)
	if !c.allowed(req.URL) {
		logger.Warnf("httpx: blocked outbound host: %s", target)
		return nil, ErrHostNotAllowed
	}
	br := c.breakerFor(req.URL.Host)
	if atomic.LoadInt64(&br.openUntil) > time.Now().UnixNano() {
		return nil, ErrCircuitOpen
	}

	var resp *http.Response
	attempts := 0
	err := retry.Do(req.Context(), c.backoff(), func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			if err := rewind(req); err != nil {
				return err
			}
		}
		r, err := c.hc.Do(req)
		if err == nil && r.StatusCode < 500 {
			resp = r
			return nil
		}
		if err == nil {
			err = fmt.Errorf("status %d", r.StatusCode)
			if attempts > c.opt.Retry {
				resp = r
				logger.Warnf("httpx: %s returned %v after %d attempt(s)", target, err, attempts)
				return nil
			}
			_, _ = io.Copy(io.Discard, r.Body)
			_ = r.Body.Close()
		}
		logger.Warnf("httpx: request failed (try %d/%d) to %s: %v", attempts, c.opt.Retry+1, target, err)
		return retry.RetryableError(err)
	})

	if err == nil && resp.StatusCode < 500 {
		atomic.StoreInt32(&br.fail, 0)
		return resp, nil
	}
	c.recordFailure(br, req.URL.Host)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.opt.BackoffMin)
	if j := c.opt.BackoffMin / 2; j > 0 {
		b = retry.WithJitter(j, b)
	}
	b = retry.WithCappedDuration(c.opt.BackoffMax, b)
	return retry.WithMaxRetries(uint64(c.opt.Retry), b)
}

// recordFailure opens the host's circuit on consecutive failures.
func (c *Client) recordFailure(br *breaker, host string) {
	if atomic.AddInt32(&br.fail, 1) >= int32(c.opt.MaxConsecutiveFail) {
		atomic.StoreInt64(&br.openUntil, time.Now().Add(c.opt.CircuitOpen).UnixNano())
		atomic.StoreInt32(&br.fail, 0)
		logger.Warnf("httpx: circuit opened for %s for %v", host, c.opt.CircuitOpen)
	}
}

func rewind(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody == nil {
		return errors.New("httpx: request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return err
	}
	req.Body = body
	return nil
}

// redact drops the query string, which carries API keys for some backends.
func redact(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}
