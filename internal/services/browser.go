package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/nexconsult/processo-api/internal/config"
	"github.com/nexconsult/processo-api/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// BrowserService drives the court portal with one short-lived Chrome per call.
// A weighted semaphore caps how many browsers run at once.
type BrowserService struct {
	browserConfig config.BrowserConfig
	portalConfig  config.PortalConfig
	logger        *logrus.Logger
	slots         *semaphore.Weighted

	inUse    atomic.Int64
	launches atomic.Int64
	failures atomic.Int64
	closed   atomic.Bool
}

// NewBrowserService creates a new browser service
func NewBrowserService(browserCfg config.BrowserConfig, portalCfg config.PortalConfig, logger *logrus.Logger) *BrowserService {
	maxBrowsers := browserCfg.MaxBrowsers
	if maxBrowsers < 1 {
		maxBrowsers = 1
	}
	browserCfg.MaxBrowsers = maxBrowsers

	logger.WithFields(logrus.Fields{
		"max_browsers": maxBrowsers,
		"headless":     browserCfg.Headless,
		"portal":       portalCfg.BaseURL,
	}).Info("Browser service initialized")

	return &BrowserService{
		browserConfig: browserCfg,
		portalConfig:  portalCfg,
		logger:        logger,
		slots:         semaphore.NewWeighted(int64(maxBrowsers)),
	}
}

// StartCaptchaFlow opens the consultation page, screenshots the CAPTCHA and
// captures the session cookies.
func (s *BrowserService) StartCaptchaFlow(ctx context.Context, caseNumber utils.CaseNumber) (*CaptchaChallenge, error) {
	challenge := &CaptchaChallenge{}

	err := s.withBrowser(ctx, "start_captcha", func(browserCtx context.Context) error {
		if err := s.navigate(browserCtx); err != nil {
			return err
		}

		var image []byte
		if err := chromedp.Run(browserCtx,
			chromedp.WaitVisible(s.portalConfig.CaptchaImage, chromedp.ByQuery),
			chromedp.Screenshot(s.portalConfig.CaptchaImage, &image, chromedp.NodeVisible, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("failed to capture captcha: %w", err)
		}
		if len(image) == 0 {
			return errors.New("captcha screenshot is empty")
		}

		var cookies []*network.Cookie
		if err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		})); err != nil {
			return fmt.Errorf("failed to read cookies: %w", err)
		}

		challenge.Image = image
		challenge.Cookies = fromNetworkCookies(cookies)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"case_number": caseNumber.String(),
		"cookies":     len(challenge.Cookies),
		"image_bytes": len(challenge.Image),
	}).Debug("Captcha captured")

	return challenge, nil
}

// SubmitCaptcha restores the phase-one cookies, fills the form and returns
// the raw document the portal answers with.
func (s *BrowserService) SubmitCaptcha(ctx context.Context, cookies []Cookie, caseNumber utils.CaseNumber, answer string) (*ResultPage, error) {
	var page *ResultPage

	err := s.withBrowser(ctx, "submit_captcha", func(browserCtx context.Context) error {
		if len(cookies) > 0 {
			params := toCookieParams(cookies)
			if err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
				return network.SetCookies(params).Do(ctx)
			})); err != nil {
				return fmt.Errorf("failed to restore cookies: %w", err)
			}
		}

		if err := s.navigate(browserCtx); err != nil {
			return err
		}

		if err := chromedp.Run(browserCtx,
			chromedp.WaitVisible(s.portalConfig.CaseNumberInput, chromedp.ByQuery),
			chromedp.Clear(s.portalConfig.CaseNumberInput, chromedp.ByQuery),
			chromedp.SendKeys(s.portalConfig.CaseNumberInput, caseNumber.String(), chromedp.ByQuery),
			chromedp.Clear(s.portalConfig.CaptchaInput, chromedp.ByQuery),
			chromedp.SendKeys(s.portalConfig.CaptchaInput, answer, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("failed to fill consultation form: %w", err)
		}

		watcher := newDocumentWatcher(browserCtx)
		chromedp.ListenTarget(browserCtx, watcher.observe)

		if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
			return fmt.Errorf("failed to enable network events: %w", err)
		}
		if _, err := chromedp.RunResponse(browserCtx,
			chromedp.Click(s.portalConfig.SubmitButton, chromedp.NodeVisible, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("failed to submit consultation form: %w", err)
		}

		if err := chromedp.Run(browserCtx,
			chromedp.WaitReady(s.portalConfig.ResultReady, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("failed to wait for result page: %w", err)
		}

		var err error
		page, err = s.readDocument(browserCtx, watcher)
		return err
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

// readDocument returns the bytes the portal sent for the result document.
// When Chrome no longer holds them it falls back to the rendered DOM, which
// is always UTF-8.
func (s *BrowserService) readDocument(browserCtx context.Context, watcher *documentWatcher) (*ResultPage, error) {
	if requestID, contentType := watcher.last(); requestID != "" {
		var body []byte
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(requestID).Do(ctx)
			return err
		}))
		if err == nil && len(body) > 0 {
			return &ResultPage{Body: body, ContentType: contentType}, nil
		}
		s.logger.WithField("error", fmt.Sprint(err)).Debug("Raw result body unavailable, reading rendered page")
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read result page: %w", err)
	}
	return &ResultPage{Body: []byte(html), ContentType: "text/html; charset=utf-8"}, nil
}

// documentWatcher remembers the last main-frame document response of a tab
type documentWatcher struct {
	mainFrame cdp.FrameID

	mu          sync.Mutex
	requestID   network.RequestID
	contentType string
}

func newDocumentWatcher(browserCtx context.Context) *documentWatcher {
	w := &documentWatcher{}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		// The main frame of a page target shares the target id
		w.mainFrame = cdp.FrameID(c.Target.TargetID)
	}
	return w
}

func (w *documentWatcher) observe(ev interface{}) {
	e, ok := ev.(*network.EventResponseReceived)
	if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
		return
	}
	if w.mainFrame != "" && e.FrameID != w.mainFrame {
		return
	}

	w.mu.Lock()
	w.requestID = e.RequestID
	w.contentType = contentTypeOf(e.Response)
	w.mu.Unlock()
}

func (w *documentWatcher) last() (network.RequestID, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestID, w.contentType
}

// contentTypeOf prefers the Content-Type header, which carries the charset
func contentTypeOf(resp *network.Response) string {
	for name, value := range resp.Headers {
		if v, ok := value.(string); ok && strings.EqualFold(name, "Content-Type") && v != "" {
			return v
		}
	}
	if resp.MimeType != "" {
		return resp.MimeType
	}
	return "text/html"
}

// navigate opens the consultation entry point and rejects 5xx answers
func (s *BrowserService) navigate(browserCtx context.Context) error {
	resp, err := chromedp.RunResponse(browserCtx, chromedp.Navigate(s.portalConfig.BaseURL))
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if resp != nil && resp.Status >= 500 {
		return fmt.Errorf("portal answered HTTP %d", resp.Status)
	}
	return nil
}

// withBrowser acquires a slot, launches an isolated browser, runs fn against
// it under a hard deadline and always tears the browser down.
func (s *BrowserService) withBrowser(ctx context.Context, operation string, fn func(browserCtx context.Context) error) error {
	if s.closed.Load() {
		return fmt.Errorf("%w: browser service is closed", ErrBrowserUnavailable)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	s.launches.Add(1)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer func() {
		if err := chromedp.Cancel(browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.WithError(err).Debug("Browser teardown reported an error")
		}
		cancelBrowser()
	}()

	if err := s.launch(browserCtx, cancelBrowser); err != nil {
		s.failures.Add(1)
		s.logger.WithFields(logrus.Fields{
			"operation": operation,
			"duration":  time.Since(start),
			"error":     err.Error(),
		}).Warn("Browser launch failed")
		return fmt.Errorf("%w: %w", ErrPortalUnreachable, err)
	}

	navigationTimeout := s.portalConfig.NavigationTimeout
	if navigationTimeout <= 0 {
		navigationTimeout = 30 * time.Second
	}
	runCtx, cancelRun := context.WithTimeout(browserCtx, navigationTimeout)
	defer cancelRun()

	if err := fn(runCtx); err != nil {
		s.failures.Add(1)
		s.logger.WithFields(logrus.Fields{
			"operation": operation,
			"duration":  time.Since(start),
			"error":     err.Error(),
		}).Warn("Portal operation failed")
		return fmt.Errorf("%w: %w", ErrPortalUnreachable, err)
	}

	s.logger.WithFields(logrus.Fields{
		"operation": operation,
		"duration":  time.Since(start),
	}).Debug("Portal operation completed")
	return nil
}

// launch starts the browser within LaunchTimeout. The context of the first
// Run bounds the whole browser lifetime, so the deadline is kept outside it.
func (s *BrowserService) launch(browserCtx context.Context, cancel context.CancelFunc) error {
	timeout := s.browserConfig.LaunchTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(browserCtx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}
		return nil
	case <-timer.C:
		cancel()
		<-done
		return fmt.Errorf("failed to launch browser: no answer after %s", timeout)
	}
}

// acquire waits up to AcquireTimeout for a browser slot
func (s *BrowserService) acquire(ctx context.Context) (func(), error) {
	acquireCtx := ctx
	if s.browserConfig.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, s.browserConfig.AcquireTimeout)
		defer cancel()
	}

	if err := s.slots.Acquire(acquireCtx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}
	s.inUse.Add(1)

	return func() {
		s.inUse.Add(-1)
		s.slots.Release(1)
	}, nil
}

func (s *BrowserService) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.Flag("incognito", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1366, 768),
		chromedp.UserAgent(s.browserConfig.UserAgent),
	}

	if s.browserConfig.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.browserConfig.ExecPath))
	}
	if s.browserConfig.Headless {
		opts = append(opts, chromedp.Headless)
	}
	// Chrome refuses to start its sandbox as root inside most containers
	if s.browserConfig.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	return opts
}

// GetStats returns browser usage statistics
func (s *BrowserService) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"in_use":       int(s.inUse.Load()),
		"max_browsers": s.browserConfig.MaxBrowsers,
		"launches":     s.launches.Load(),
		"failures":     s.failures.Load(),
	}
}

// Health returns browser service health status
func (s *BrowserService) Health() map[string]interface{} {
	stats := s.GetStats()

	status := "healthy"
	if s.closed.Load() {
		status = "unhealthy"
	} else if stats["in_use"].(int) >= s.browserConfig.MaxBrowsers {
		status = "degraded"
	}

	return map[string]interface{}{
		"status": status,
		"stats":  stats,
	}
}

// Close stops accepting new browser work. Running calls finish and tear down on their own.
func (s *BrowserService) Close() error {
	s.closed.Store(true)
	s.logger.Info("Browser service closed")
	return nil
}

func fromNetworkCookies(cookies []*network.Cookie) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	return out
}

func toCookieParams(cookies []Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		// Session cookies carry Expires <= 0
		if c.Expires > 0 {
			sec := int64(c.Expires)
			nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
			expires := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			p.Expires = &expires
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		params = append(params, p)
	}
	return params
}
