package ui

import (
	"strings"
	"sync"
	"time"

	"statusmon/pkg/log"
	"statusmon/pkg/models"

	"github.com/google/uuid"
)

const (
	ToastID        = "toast"
	ToastIconID    = "toastIcon"
	ToastMessageID = "toastMessage"

	defaultToastShowDelay = 100 * time.Millisecond
	defaultToastHideDelay = 3000 * time.Millisecond
)

// ToastOptions configures toast timing. HideDelay counts from the Notify call.
type ToastOptions struct {
	ShowDelay time.Duration
	HideDelay time.Duration
}

// Notifier shows one toast at a time on a page. A new toast replaces the
// visible one and restarts its timer.
type Notifier struct {
	page *Page
	opts ToastOptions

	mu        sync.Mutex
	timer     *time.Timer
	seq       uint64
	last      models.Toast
	listeners []func(models.Toast)
}

// NewNotifier creates a notifier for page. Zero options take defaults.
func NewNotifier(page *Page, opts ToastOptions) *Notifier {
	if opts.ShowDelay <= 0 {
		opts.ShowDelay = defaultToastShowDelay
	}
	if opts.HideDelay <= 0 {
		opts.HideDelay = defaultToastHideDelay
	}
	if opts.HideDelay < opts.ShowDelay {
		opts.HideDelay = opts.ShowDelay
	}
	return &Notifier{page: page, opts: opts}
}

// OnNotify registers fn to be called with every toast shown.
func (n *Notifier) OnNotify(fn func(models.Toast)) {
	n.mu.Lock()
	n.listeners = append(n.listeners, fn)
	n.mu.Unlock()
}

// Notify fills the toast with message and kind, fades it in after the show
// delay and out after the hide delay. An empty kind means success.
func (n *Notifier) Notify(message string, kind models.ToastKind) (models.Toast, error) {
	if !n.page.HasElement(ToastID) {
		log.Warn().Msg("Toast element not found")
		return models.Toast{}, ErrElementNotFound
	}
	kind = models.ToastKind(strings.TrimSpace(string(kind)))
	if kind == "" {
		kind = models.ToastSuccess
	}

	toast := models.Toast{
		ID:      uuid.NewString(),
		Message: message,
		Kind:    kind,
		Icon:    kind.Icon(),
		ShownAt: time.Now().UTC(),
	}

	n.mu.Lock()
	n.seq++
	seq := n.seq
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.last = toast

	n.page.SetText(ToastIconID, toast.Icon)
	n.page.SetText(ToastMessageID, message)
	n.page.SetClass(ToastID, "toast "+string(kind))

	remaining := n.opts.HideDelay - n.opts.ShowDelay
	n.timer = time.AfterFunc(n.opts.ShowDelay, func() {
		n.fire(seq, func() {
			n.page.AddClass(ToastID, classShow)
			n.timer = time.AfterFunc(remaining, func() {
				n.fire(seq, func() {
					n.page.RemoveClass(ToastID, classShow)
				})
			})
		})
	})

	listeners := make([]func(models.Toast), len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(toast)
	}

	log.Debug().
		Str("toast_id", toast.ID).
		Str("kind", string(kind)).
		Msg("Toast shown")

	return toast, nil
}

// Last returns the most recent toast, if any.
func (n *Notifier) Last() (models.Toast, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last, n.last.ID != ""
}

// Visible reports whether the toast is currently faded in.
func (n *Notifier) Visible() bool {
	return n.page.HasClass(ToastID, classShow)
}

func (n *Notifier) fire(seq uint64, fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if seq != n.seq {
		return
	}
	n.timer = nil
	fn()
}
