package ui

import (
	"html"
	"strings"
	"sync"
	"time"

	"statusmon/pkg/log"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// BannerID is the id of the offline banner element.
	BannerID = "serverOfflineWarning"

	classShow = "show"

	defaultBannerTitle     = "Server Offline"
	defaultBannerMessage   = "The server is not reachable. Some features are unavailable until it comes back."
	defaultBannerShowDelay = 10 * time.Millisecond
	defaultBannerHideDelay = 300 * time.Millisecond
)

// BannerOptions configures the offline banner.
type BannerOptions struct {
	Title     string
	Message   string
	ShowDelay time.Duration
	HideDelay time.Duration
}

// Banner shows an offline warning on a page while the backend is unreachable.
type Banner struct {
	page *Page
	opts BannerOptions

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

// NewBanner creates a banner for page. Zero options take defaults.
func NewBanner(page *Page, opts BannerOptions) *Banner {
	if opts.Title == "" {
		opts.Title = defaultBannerTitle
	}
	if opts.Message == "" {
		opts.Message = defaultBannerMessage
	}
	if opts.ShowDelay <= 0 {
		opts.ShowDelay = defaultBannerShowDelay
	}
	if opts.HideDelay <= 0 {
		opts.HideDelay = defaultBannerHideDelay
	}
	return &Banner{page: page, opts: opts}
}

// Update reflects a check result. Going offline injects the banner if needed,
// displays it and fades it in after the show delay. Going online fades it out
// and hides it after the hide delay, unless an offline update arrives first.
func (b *Banner) Update(online bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	seq := b.seq
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}

	if !b.page.HasElement(BannerID) {
		if online {
			return
		}
		if !b.inject() {
			log.Debug().Msg("No anchor for offline banner")
			return
		}
	}

	if online {
		b.page.RemoveClass(BannerID, classShow)
		b.timer = time.AfterFunc(b.opts.HideDelay, func() {
			b.fire(seq, func() {
				b.page.SetStyle(BannerID, "display", "none")
			})
		})
		return
	}

	b.page.SetStyle(BannerID, "display", "flex")
	b.timer = time.AfterFunc(b.opts.ShowDelay, func() {
		b.fire(seq, func() {
			b.page.AddClass(BannerID, classShow)
		})
	})
}

// Visible reports whether the banner is displayed and faded in.
func (b *Banner) Visible() bool {
	return b.page.HasClass(BannerID, classShow) && b.page.Style(BannerID, "display") != "none"
}

func (b *Banner) fire(seq uint64, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.seq {
		return
	}
	b.timer = nil
	fn()
}

// inject inserts the banner after .page-header when the page has both a
// header and a main landmark, otherwise as the first child of main.
func (b *Banner) inject() bool {
	nodes, err := nethtml.ParseFragment(strings.NewReader(b.markup()), &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil || len(nodes) == 0 {
		log.Error().Err(err).Msg("Failed to build offline banner")
		return false
	}
	banner := nodes[0]

	injected := false
	b.page.edit(func(root *nethtml.Node) {
		main := querySelector(root, "main")
		header := querySelector(root, ".page-header")
		switch {
		case header != nil && main != nil && header.Parent != nil:
			header.Parent.InsertBefore(banner, header.NextSibling)
			injected = true
		case main != nil:
			main.InsertBefore(banner, main.FirstChild)
			injected = true
		}
	})
	return injected
}

func (b *Banner) markup() string {
	return `<div id="` + BannerID + `" class="warning-banner">` +
		`<span class="warning-icon">⚠️</span>` +
		`<div class="warning-content">` +
		`<div class="warning-title">` + html.EscapeString(b.opts.Title) + `</div>` +
		`<div class="warning-message">` + html.EscapeString(b.opts.Message) + `</div>` +
		`</div></div>`
}
