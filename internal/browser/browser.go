package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/snack-catalog-crawler/internal/stock"
)

var (
	ErrLoginFormNotFound = errors.New("login form not found")
	ErrFetchStatus       = errors.New("unexpected response status")
)

var (
	loginIDSelectors     = []string{"input[name='m_id']", "#loginId", "input[name='loginId']"}
	loginPWSelectors     = []string{"input[name='m_pwd']", "#loginPwd", "input[type='password']"}
	loginSubmitSelectors = []string{"button[type='submit']", "input[type='submit']", "#btnLogin"}
)

// blockedResources are aborted at the context level; stylesheets stay for DOM stability.
var blockedResources = map[string]bool{
	"image": true,
	"media": true,
	"font":  true,
}

const loginFieldWait = 2 * time.Second

// Session is one logged-in browser context. The listing page is reused for the
// sequential crawl; stock probes open their own pages or use the request API,
// both sharing the context's cookies.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *slog.Logger
	opts    *Options

	mu   sync.Mutex
	page playwright.Page
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	TimezoneID     string
	Locale         string
	BlockResources bool
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        5 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1366,
		ViewportHeight: 900,
		TimezoneID:     "Asia/Seoul",
		Locale:         "ko-KR",
		BlockResources: true,
	}
}

func New(opts *Options, logger *slog.Logger) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:       playwright.String(opts.UserAgent),
		AcceptDownloads: playwright.Bool(false),
		Locale:          playwright.String(opts.Locale),
		TimezoneId:      playwright.String(opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	if opts.BlockResources {
		err = bctx.Route("**/*", func(route playwright.Route) {
			if blockedResources[route.Request().ResourceType()] {
				_ = route.Abort()
				return
			}
			_ = route.Continue()
		})
		if err != nil {
			bctx.Close()
			browser.Close()
			pw.Stop()
			return nil, fmt.Errorf("failed to install resource filter: %w", err)
		}
	}

	return &Session{
		pw:      pw,
		browser: browser,
		context: bctx,
		logger:  logger.With("component", "browser"),
		opts:    opts,
	}, nil
}

// Login submits the member login form and waits for the network to settle.
func (s *Session) Login(ctx context.Context, loginURL, userID, password string) error {
	page, err := s.listingPage()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := page.Goto(loginURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	idField := waitForAny(page, loginIDSelectors, loginFieldWait)
	pwField := waitForAny(page, loginPWSelectors, loginFieldWait)
	if idField == nil || pwField == nil {
		return ErrLoginFormNotFound
	}

	if err := idField.Fill(userID); err != nil {
		return fmt.Errorf("failed to fill user id: %w", err)
	}
	if err := pwField.Fill(password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	clicked := false
	for _, selector := range loginSubmitSelectors {
		btn, err := page.QuerySelector(selector)
		if err != nil || btn == nil {
			continue
		}
		if err := btn.Click(); err != nil {
			return fmt.Errorf("failed to submit login form: %w", err)
		}
		clicked = true
		break
	}
	if !clicked {
		if err := page.Keyboard().Press("Enter"); err != nil {
			return fmt.Errorf("failed to submit login form: %w", err)
		}
	}

	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("failed waiting for login: %w", err)
	}

	s.logger.Info("logged in", "url", page.URL())
	return nil
}

// Render navigates the shared listing page and returns its DOM.
func (s *Session) Render(ctx context.Context, url string) (string, error) {
	page, err := s.listingPage()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

// Fetch downloads url through the context's request API without rendering.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	timeout, err := s.timeout(ctx)
	if err != nil {
		return "", err
	}

	type result struct {
		body string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		resp, err := s.context.Request().Get(url, playwright.APIRequestContextGetOptions{
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
		})
		if err != nil {
			done <- result{err: fmt.Errorf("failed to fetch: %w", err)}
			return
		}
		defer resp.Dispose()

		if !resp.Ok() {
			done <- result{err: fmt.Errorf("%w: %d", ErrFetchStatus, resp.Status())}
			return
		}
		body, err := resp.Text()
		if err != nil {
			done <- result{err: fmt.Errorf("failed to read body: %w", err)}
			return
		}
		done <- result{body: body}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.body, r.err
	}
}

// OpenView opens a fresh page on url for interactive probing. The caller must Close it.
func (s *Session) OpenView(ctx context.Context, url string) (stock.View, error) {
	timeout, err := s.timeout(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	v := newView(page)
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	return v, nil
}

// timeout is the time left before the ctx deadline, or the session default
// when ctx has none.
func (s *Session) timeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := s.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return 0, context.DeadlineExceeded
	}
	return timeout, nil
}

func (s *Session) listingPage() (playwright.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return s.page, nil
	}
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	s.page = page
	return page, nil
}

func (s *Session) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}

func waitForAny(page playwright.Page, selectors []string, wait time.Duration) playwright.ElementHandle {
	for _, selector := range selectors {
		el, err := page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(float64(wait.Milliseconds())),
		})
		if err == nil && el != nil {
			return el
		}
	}
	return nil
}
