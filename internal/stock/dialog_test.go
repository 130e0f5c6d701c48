package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElement struct {
	attrs   map[string]string
	value   string
	text    string
	onFill  func(value string)
	events  []string
	fillErr error
}

func (e *fakeElement) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) Fill(value string) error {
	if e.fillErr != nil {
		return e.fillErr
	}
	e.value = value
	if e.onFill != nil {
		e.onFill(value)
	}
	return nil
}

func (e *fakeElement) Dispatch(events ...string) error {
	e.events = append(e.events, events...)
	return nil
}

func (e *fakeElement) Value() (string, error) { return e.value, nil }

func (e *fakeElement) Text() (string, error) { return e.text, nil }

type fakeView struct {
	html     string
	elements map[string][]*fakeElement
	dialogs  []string
	closed   bool
	waits    []time.Duration
	// slowMiss makes a miss take the whole wait and a little more, like a real selector wait.
	slowMiss bool
}

func (v *fakeView) HTML() (string, error) { return v.html, nil }

func (v *fakeView) WaitFor(_ context.Context, selector string, timeout time.Duration) (Element, bool) {
	v.waits = append(v.waits, timeout)
	if els := v.elements[selector]; len(els) > 0 {
		return els[0], true
	}
	if v.slowMiss {
		time.Sleep(timeout + 5*time.Millisecond)
	}
	return nil, false
}

func (v *fakeView) QueryAll(selector string) ([]Element, error) {
	var out []Element
	for _, el := range v.elements[selector] {
		out = append(out, el)
	}
	return out, nil
}

func (v *fakeView) Dialogs() []string { return v.dialogs }

func (v *fakeView) Settle(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func (v *fakeView) Close() error {
	v.closed = true
	return nil
}

type fakeOpener struct {
	mu    sync.Mutex
	view  *fakeView
	err   error
	opens int
}

func (o *fakeOpener) OpenView(_ context.Context, _ string) (View, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	return o.view, nil
}

func newTestDialogStrategy(opener ViewOpener, silentAsZero bool) *DialogStrategy {
	s := NewDialogStrategy(opener, Options{Timeout: time.Second, TreatSilentAsZero: silentAsZero}, testLogger())
	s.candidateWait = time.Millisecond
	s.settleDelay = 0
	return s
}

func TestDialogStrategyStaticAttribute(t *testing.T) {
	view := &fakeView{html: `<input name="goodsCnt[]" data-stock="42">`}
	qty, err := newTestDialogStrategy(&fakeOpener{view: view}, false).Probe(context.Background(), detailURL)

	require.NoError(t, err)
	require.NotNil(t, qty)
	assert.Equal(t, 42, *qty)
	assert.True(t, view.closed)
	assert.Empty(t, view.waits, "quantity control is not searched when the attribute is present")
}

func TestDialogStrategyNativeDialog(t *testing.T) {
	view := &fakeView{html: `<form></form>`}
	input := &fakeElement{value: "1"}
	input.onFill = func(string) { view.dialogs = append(view.dialogs, "최대 구매 가능 수량은 25개 입니다.") }
	view.elements = map[string][]*fakeElement{"input[name='goodsCnt[]']": {input}}

	qty, err := newTestDialogStrategy(&fakeOpener{view: view}, false).Probe(context.Background(), detailURL)
	require.NoError(t, err)
	require.NotNil(t, qty)
	assert.Equal(t, 25, *qty)
	assert.Equal(t, "10000", input.value)
	assert.Equal(t, []string{"input", "change", "blur", "submit"}, input.events)
	assert.True(t, view.closed)
}

func TestDialogStrategyRenderedMessage(t *testing.T) {
	view := &fakeView{html: `<form></form>`}
	input := &fakeElement{}
	msg := &fakeElement{}
	input.onFill = func(string) { msg.text = "The maximum quantity is 1,150." }
	view.elements = map[string][]*fakeElement{
		"input[type='number']": {input},
		".alert_msg":           {msg},
	}

	qty, err := newTestDialogStrategy(&fakeOpener{view: view}, false).Probe(context.Background(), detailURL)
	require.NoError(t, err)
	require.NotNil(t, qty)
	assert.Equal(t, 1150, *qty)
}

func TestDialogStrategyAttributeAfterInteraction(t *testing.T) {
	view := &fakeView{html: `<form></form>`}
	input := &fakeElement{}
	input.onFill = func(string) { view.html = `<input name="goodsCnt[]" data-stock="9">` }
	view.elements = map[string][]*fakeElement{"input.goods_cnt": {input}}

	qty, err := newTestDialogStrategy(&fakeOpener{view: view}, false).Probe(context.Background(), detailURL)
	require.NoError(t, err)
	require.NotNil(t, qty)
	assert.Equal(t, 9, *qty)
}

func TestDialogStrategySilentSentinel(t *testing.T) {
	tests := []struct {
		name         string
		silentAsZero bool
		want         *int
	}{
		{"Absent by default", false, nil},
		{"Zero when enabled", true, intPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := &fakeView{
				html:     `<form></form>`,
				elements: map[string][]*fakeElement{"input[name='goodsCnt[]']": {{}}},
			}
			qty, err := newTestDialogStrategy(&fakeOpener{view: view}, tt.silentAsZero).Probe(context.Background(), detailURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, qty)
			assert.True(t, view.closed)
		})
	}
}

func TestDialogStrategyCorrectedValueIsNotSilent(t *testing.T) {
	input := &fakeElement{}
	input.onFill = func(string) { input.value = "3" }
	view := &fakeView{
		html:     `<form></form>`,
		elements: map[string][]*fakeElement{"input[name='goodsCnt[]']": {input}},
	}

	qty, err := newTestDialogStrategy(&fakeOpener{view: view}, true).Probe(context.Background(), detailURL)
	require.NoError(t, err)
	assert.Nil(t, qty)
}

func TestDialogStrategyNoQuantityControl(t *testing.T) {
	view := &fakeView{html: `<div>sold elsewhere</div>`}

	qty, err := newTestDialogStrategy(&fakeOpener{view: view}, true).Probe(context.Background(), detailURL)
	assert.ErrorIs(t, err, ErrNoQuantityControl)
	assert.Nil(t, qty)
	assert.True(t, view.closed)
	require.Len(t, view.waits, len(quantityInputCandidates))
	for _, w := range view.waits {
		assert.Equal(t, time.Millisecond, w)
	}
}

func TestDialogStrategyHonoursTimeout(t *testing.T) {
	view := &fakeView{html: `<div></div>`, slowMiss: true}
	s := NewDialogStrategy(&fakeOpener{view: view}, Options{Timeout: 100 * time.Millisecond}, testLogger())
	s.settleDelay = 0

	start := time.Now()
	qty, err := s.Probe(context.Background(), detailURL)
	elapsed := time.Since(start)

	assert.Nil(t, qty)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second)
	assert.True(t, view.closed)
	for _, w := range view.waits {
		assert.LessOrEqual(t, w, 100*time.Millisecond)
	}
}

func TestDialogStrategyClosesViewOnError(t *testing.T) {
	boom := errors.New("element detached")
	view := &fakeView{
		html:     `<form></form>`,
		elements: map[string][]*fakeElement{"input[name='goodsCnt[]']": {{fillErr: boom}}},
	}

	_, err := newTestDialogStrategy(&fakeOpener{view: view}, false).Probe(context.Background(), detailURL)
	assert.ErrorIs(t, err, boom)
	assert.True(t, view.closed)
}

func TestDialogStrategyOpenFailure(t *testing.T) {
	boom := errors.New("browser gone")
	_, err := newTestDialogStrategy(&fakeOpener{err: boom}, false).Probe(context.Background(), detailURL)
	assert.ErrorIs(t, err, boom)
}

func TestFindQuantityInputPrefersStockCarrier(t *testing.T) {
	plain := &fakeElement{}
	carrier := &fakeElement{attrs: map[string]string{"data-stock": ""}}
	view := &fakeView{elements: map[string][]*fakeElement{
		"input[name='goodsCnt[]']": {plain},
		"input[type='number']":     {carrier},
	}}

	s := newTestDialogStrategy(&fakeOpener{view: view}, false)
	el, ok := s.findQuantityInput(context.Background(), view)
	require.True(t, ok)
	assert.Same(t, carrier, el)
	assert.Equal(t, time.Millisecond, view.waits[0])
	assert.Equal(t, time.Duration(0), view.waits[1])
}

func TestParseMaxQuantity(t *testing.T) {
	tests := []struct {
		msg    string
		want   int
		wantOK bool
	}{
		{"최대 구매 수량은 25개입니다", 25, true},
		{"최대 3,000개까지 구매하실 수 있습니다.", 3000, true},
		{"Maximum quantity: 12", 12, true},
		{"최소 구매 수량은 2개입니다", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, ok := ParseMaxQuantity(tt.msg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func intPtr(v int) *int { return &v }
