package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/escrutinio/internal/config"
	"github.com/IshaanNene/escrutinio/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
//
// Every Fetch launches its own Chromium process and tears it down before
// returning, so no browser state survives between runs.
type BrowserFetcher struct {
	cfg    *config.BrowserConfig
	logger *slog.Logger
}

// NewBrowserFetcher creates a new headless browser fetcher.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		cfg:    &cfg.Browser,
		logger: logger.With("component", "browser_fetcher"),
	}
}

// session is one browser process owned by a single Fetch call.
type session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// close terminates the browser process and removes its profile directory.
func (s *session) close() {
	if s.browser != nil {
		_ = s.browser.Close()
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
}

// launch starts a Chromium instance with appropriate flags.
func (bf *BrowserFetcher) launch(ctx context.Context) (*session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(bf.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if bf.cfg.Bin != "" {
		l = l.Bin(bf.cfg.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	sess := &session{launcher: l}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		sess.close()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	sess.browser = browser

	return sess, nil
}

// Fetch navigates to the results page, waits for the results container,
// switches the page to the requested district and returns the settled HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	start := time.Now()
	url := req.URLString()

	sess, err := bf.launch(ctx)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: true}
	}
	defer sess.close()

	var page *rod.Page
	if bf.cfg.Stealth {
		page, err = stealth.Page(sess.browser)
	} else {
		page, err = sess.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("open page: %w", err), Retryable: true}
	}

	ua := req.Headers.Get("User-Agent")
	if ua == "" {
		ua = bf.cfg.UserAgent
	}
	if ua != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
		if err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	headers := make([]string, 0, len(req.Headers)*2)
	for k, vals := range req.Headers {
		if k == "User-Agent" {
			continue // Already handled
		}
		for _, v := range vals {
			headers = append(headers, k, v)
		}
	}
	if len(headers) > 0 {
		_, _ = page.SetExtraHeaders(headers)
	}

	timeout := bf.cfg.NavigationTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	bf.logger.Info("navigating", "url", url)
	if err := page.Timeout(timeout).Navigate(url); err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: !errors.Is(err, context.Canceled)}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		bf.logger.Warn("page load wait failed, continuing", "url", url, "error", err)
	}

	if req.WaitSelector != "" {
		if _, err := page.Timeout(bf.cfg.WaitTimeout).Element(req.WaitSelector); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("wait for %q after %s: %w", req.WaitSelector, bf.cfg.WaitTimeout, types.ErrTimeout)
			}
			return nil, &types.FetchError{URL: url, Err: err, Retryable: !errors.Is(err, context.Canceled)}
		}
	}

	if script := req.SelectScript(); script != "" {
		bf.logger.Info("selecting district", "code", req.District.Code, "name", req.District.Name)
		if _, err := page.Eval(script, req.District.Code, req.District.Name); err != nil {
			// The page no longer exposes the selection routine the way we call it.
			return nil, &types.FetchError{URL: url, Err: fmt.Errorf("select district: %w", err), Retryable: false}
		}
	}

	if err := sleepCtx(ctx, bf.cfg.SettleDelay); err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: false}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: true}
	}

	// Get final URL (after any redirects)
	finalURL := url
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	resp := types.NewPage(req, 200, []byte(html), finalURL, duration)

	bf.logger.Debug("browser fetch complete",
		"url", url,
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return resp, nil
}

// Close is a no-op: browsers never outlive a Fetch call.
func (bf *BrowserFetcher) Close() error {
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
