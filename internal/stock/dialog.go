package stock

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/snack-catalog-crawler/internal/parser"
)

// SentinelQty is entered into the quantity control to provoke the shop's
// maximum-quantity validation.
const SentinelQty = 10000

const (
	defaultCandidateWait = 2 * time.Second
	defaultSettleDelay   = 800 * time.Millisecond
)

// quantityInputCandidates are tried in priority order.
var quantityInputCandidates = []string{
	"input[name='goodsCnt[]']",
	"input.goods_cnt",
	"input[name^='goodsCnt']",
	"input[name*='Cnt'][type='text']",
	"input[type='number']",
}

// messageRegions may hold a rendered validation message after the sentinel is entered.
var messageRegions = []string{
	"[role='alert']",
	".layer_wrap .msg",
	"#layerDim .msg",
	".alert_msg",
	".error_msg",
	".msg_box",
}

var maxQtyPattern = regexp.MustCompile(`(?i)(?:최대|maximum)\D{0,30}?(\d[\d,]*)`)

// ViewOpener opens a rendered page the caller owns until Close.
type ViewOpener interface {
	OpenView(ctx context.Context, url string) (View, error)
}

// View is a live page that can be inspected and interacted with.
type View interface {
	HTML() (string, error)
	// WaitFor returns the first element matching selector, waiting up to timeout
	// or until ctx is done, whichever comes first.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, bool)
	QueryAll(selector string) ([]Element, error)
	// Dialogs returns the messages of native dialogs shown since the view opened.
	Dialogs() []string
	Settle(ctx context.Context, d time.Duration) error
	Close() error
}

// Element is a single DOM element inside a View.
type Element interface {
	Attr(name string) (string, bool)
	Fill(value string) error
	Dispatch(events ...string) error
	Value() (string, error)
	Text() (string, error)
}

// DialogStrategy probes stock by entering an absurd quantity and reading the
// shop's validation response.
type DialogStrategy struct {
	views             ViewOpener
	timeout           time.Duration
	candidateWait     time.Duration
	settleDelay       time.Duration
	treatSilentAsZero bool
	logger            *slog.Logger
}

func NewDialogStrategy(views ViewOpener, opts Options, logger *slog.Logger) *DialogStrategy {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DialogStrategy{
		views:             views,
		timeout:           timeout,
		candidateWait:     defaultCandidateWait,
		settleDelay:       defaultSettleDelay,
		treatSilentAsZero: opts.TreatSilentAsZero,
		logger:            logger.With("component", "stock_dialog"),
	}
}

func (s *DialogStrategy) Probe(ctx context.Context, url string) (*int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	view, err := s.views.OpenView(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open view: %w", err)
	}
	defer func() {
		if closeErr := view.Close(); closeErr != nil {
			s.logger.Warn("failed to close view", "url", url, "error", closeErr)
		}
	}()

	if n, ok := s.readStockAttr(view); ok {
		return &n, nil
	}

	input, ok := s.findQuantityInput(ctx, view)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to find quantity control: %w", err)
		}
		return nil, ErrNoQuantityControl
	}

	sentinel := strconv.Itoa(SentinelQty)
	if err := input.Fill(sentinel); err != nil {
		return nil, fmt.Errorf("failed to fill quantity: %w", err)
	}
	// submit bubbles to the enclosing form, running its validation without navigating.
	if err := input.Dispatch("input", "change", "blur", "submit"); err != nil {
		return nil, fmt.Errorf("failed to dispatch events: %w", err)
	}
	if err := view.Settle(ctx, s.settleDelay); err != nil {
		return nil, err
	}

	if n, ok := s.readValidationMessage(view); ok {
		return &n, nil
	}

	if n, ok := s.readStockAttr(view); ok {
		return &n, nil
	}

	// Heuristic: the shop kept an impossible quantity without complaint.
	if value, err := input.Value(); err == nil && strings.TrimSpace(value) == sentinel {
		s.logger.Debug("sentinel accepted silently", "url", url, "treat_as_zero", s.treatSilentAsZero)
		if s.treatSilentAsZero {
			zero := 0
			return &zero, nil
		}
	}

	return nil, nil
}

func (s *DialogStrategy) readStockAttr(view View) (int, bool) {
	html, err := view.HTML()
	if err != nil {
		return 0, false
	}
	n, ok, err := parser.ExtractStock(html)
	if err != nil {
		return 0, false
	}
	return n, ok
}

// findQuantityInput ranks the candidates present on the page by priority; a control
// that also carries a stock attribute outranks any that does not. Only the search
// up to the first hit waits, and no wait outlives the ctx deadline.
func (s *DialogStrategy) findQuantityInput(ctx context.Context, view View) (Element, bool) {
	var best Element
	bestScore, wait := -1, s.candidateWait
	for i, selector := range quantityInputCandidates {
		if ctx.Err() != nil {
			break
		}
		if deadline, ok := ctx.Deadline(); ok {
			wait = min(wait, max(time.Until(deadline), 0))
		}

		el, ok := view.WaitFor(ctx, selector, wait)
		if !ok {
			continue
		}
		wait = 0

		score := len(quantityInputCandidates) - i
		if _, has := el.Attr(parser.StockAttr); has {
			score += len(quantityInputCandidates)
		}
		if score > bestScore {
			best, bestScore = el, score
		}
	}
	return best, best != nil
}

func (s *DialogStrategy) readValidationMessage(view View) (int, bool) {
	for _, msg := range view.Dialogs() {
		if n, ok := ParseMaxQuantity(msg); ok {
			return n, true
		}
	}

	for _, selector := range messageRegions {
		elements, err := view.QueryAll(selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			text, err := el.Text()
			if err != nil {
				continue
			}
			if n, ok := ParseMaxQuantity(text); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// ParseMaxQuantity extracts N from messages like "최대 구매 수량은 25개입니다".
func ParseMaxQuantity(msg string) (int, bool) {
	m := maxQtyPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	return parser.ParseStockValue(m[1])
}
