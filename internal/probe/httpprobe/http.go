// Package httpprobe checks HTTP endpoints: one request with the
// configured method, healthy iff the status code equals the target's
// expected status.
package httpprobe

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
	"time"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

type Config struct {
	UserAgent       string
	FollowRedirects bool
	VerifyTLS       bool
}

type Probe struct {
	client *http.Client
	cfg    Config
}

func New(cfg Config) *Probe {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}

	// No client-level timeout: each check is bounded by the
	// target's own deadline through the request context.
	client := &http.Client{Transport: transport}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &Probe{client: client, cfg: cfg}
}

func (p *Probe) Name() string { return string(target.KindEndpoint) }

func (p *Probe) Run(ctx context.Context, t target.Target) *result.CheckResult {
	ep, ok := t.(*target.Endpoint)
	if !ok {
		return result.New(t, time.Now()).Fail("endpoint probe: unsupported target type")
	}

	ctx, cancel := context.WithTimeout(ctx, ep.Timeout)
	defer cancel()

	start := time.Now()
	res := result.New(ep, start)

	req, err := http.NewRequestWithContext(ctx, normalizeMethod(ep.Method), normalizeURL(ep.URL), nil)
	if err != nil {
		res.LatencyMS = time.Since(start).Milliseconds()
		return res.Fail(err.Error())
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.client.Do(req)
	res.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		if isTimeout(err) {
			return res.Fail(fmt.Sprintf("timeout after %s", ep.Timeout))
		}
		return res.Fail(err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	code := resp.StatusCode
	res.StatusCode = &code
	if code != ep.ExpectedStatus {
		return res.Fail(fmt.Sprintf("expected status %d, got %d", ep.ExpectedStatus, code))
	}
	res.Healthy = true
	return res
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}

func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return http.MethodGet
	}
	return m
}

func normalizeURL(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return t
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t
	}
	return "http://" + t
}
