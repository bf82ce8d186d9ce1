package tracker

import (
	"slices"
	"sync"

	"partnerdash/api/models"
)

// PointerEvent is a click or hover on a target at page coordinates.
type PointerEvent struct {
	Target models.EventTarget
	X, Y   float64
}

// Viewport is the scroll state sampled when a scroll event fires.
type Viewport struct {
	ScrollY        float64
	ScrollHeight   float64
	ViewportHeight float64
}

// EventSource is the set of interaction hooks a platform shell exposes.
type EventSource interface {
	OnClick(func(PointerEvent))
	OnHover(func(PointerEvent))
	OnScroll(func(Viewport))
	OnNavigate(func(page string))
	OnUnload(func())
}

// Environment supplies the ambient context stamped onto every entry.
type Environment interface {
	CurrentPage() string
	CurrentUser() string
	UserAgent() string
}

// Bus is an in-process shell implementing EventSource and Environment.
// Emitters update its state and then fan out to subscribers; handlers run
// without the bus lock held so they may read the environment.
type Bus struct {
	mu        sync.Mutex
	page      string
	user      string
	userAgent string

	clicks    []func(PointerEvent)
	hovers    []func(PointerEvent)
	scrolls   []func(Viewport)
	navigates []func(string)
	unloads   []func()
}

func NewBus(initialPage string) *Bus {
	return &Bus{page: initialPage}
}

func (b *Bus) OnClick(fn func(PointerEvent)) {
	b.mu.Lock()
	b.clicks = append(b.clicks, fn)
	b.mu.Unlock()
}

func (b *Bus) OnHover(fn func(PointerEvent)) {
	b.mu.Lock()
	b.hovers = append(b.hovers, fn)
	b.mu.Unlock()
}

func (b *Bus) OnScroll(fn func(Viewport)) {
	b.mu.Lock()
	b.scrolls = append(b.scrolls, fn)
	b.mu.Unlock()
}

func (b *Bus) OnNavigate(fn func(string)) {
	b.mu.Lock()
	b.navigates = append(b.navigates, fn)
	b.mu.Unlock()
}

func (b *Bus) OnUnload(fn func()) {
	b.mu.Lock()
	b.unloads = append(b.unloads, fn)
	b.mu.Unlock()
}

func (b *Bus) CurrentPage() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

func (b *Bus) CurrentUser() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user
}

func (b *Bus) UserAgent() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userAgent
}

func (b *Bus) SetUser(id string) {
	b.mu.Lock()
	b.user = id
	b.mu.Unlock()
}

func (b *Bus) SetUserAgent(ua string) {
	b.mu.Lock()
	b.userAgent = ua
	b.mu.Unlock()
}

// Navigate moves to page and notifies navigation subscribers.
func (b *Bus) Navigate(page string) {
	b.mu.Lock()
	b.page = page
	subs := slices.Clone(b.navigates)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(page)
	}
}

func (b *Bus) Click(ev PointerEvent) {
	b.mu.Lock()
	subs := slices.Clone(b.clicks)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (b *Bus) Hover(ev PointerEvent) {
	b.mu.Lock()
	subs := slices.Clone(b.hovers)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (b *Bus) Scroll(v Viewport) {
	b.mu.Lock()
	subs := slices.Clone(b.scrolls)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

func (b *Bus) Unload() {
	b.mu.Lock()
	subs := slices.Clone(b.unloads)
	b.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
