package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/snack-catalog-crawler/internal/stock"
)

// view adapts a playwright page to stock.View. Native dialogs are recorded and dismissed.
type view struct {
	page playwright.Page

	mu      sync.Mutex
	dialogs []string
}

func newView(page playwright.Page) *view {
	v := &view{page: page}
	page.OnDialog(func(d playwright.Dialog) {
		v.mu.Lock()
		v.dialogs = append(v.dialogs, d.Message())
		v.mu.Unlock()
		_ = d.Dismiss()
	})
	return v
}

func (v *view) HTML() (string, error) {
	return v.page.Content()
}

func (v *view) WaitFor(ctx context.Context, selector string, timeout time.Duration) (stock.Element, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	var (
		el  playwright.ElementHandle
		err error
	)
	if timeout <= 0 {
		el, err = v.page.QuerySelector(selector)
	} else {
		el, err = v.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
		})
	}
	if err != nil || el == nil {
		return nil, false
	}
	return &element{handle: el}, true
}

func (v *view) QueryAll(selector string) ([]stock.Element, error) {
	handles, err := v.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	out := make([]stock.Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &element{handle: h})
	}
	return out, nil
}

func (v *view) Dialogs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.dialogs...)
}

func (v *view) Settle(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (v *view) Close() error {
	return v.page.Close()
}

type element struct {
	handle playwright.ElementHandle
}

func (e *element) Attr(name string) (string, bool) {
	has, err := e.handle.Evaluate(`(el, name) => el.hasAttribute(name)`, name)
	if err != nil {
		return "", false
	}
	if ok, _ := has.(bool); !ok {
		return "", false
	}
	value, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", false
	}
	return value, true
}

func (e *element) Fill(value string) error {
	return e.handle.Fill(value)
}

func (e *element) Dispatch(events ...string) error {
	for _, ev := range events {
		if err := e.handle.DispatchEvent(ev); err != nil {
			return fmt.Errorf("failed to dispatch %s: %w", ev, err)
		}
	}
	return nil
}

func (e *element) Value() (string, error) {
	return e.handle.InputValue()
}

func (e *element) Text() (string, error) {
	return e.handle.InnerText()
}
