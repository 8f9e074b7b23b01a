package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"bilisearch-crawler/internal/config"
)

// Selectors for the video-search result page. The site renders one card per
// div.bili-video-card__wrap; the stats region holds one item (views) or two
// (views, barrages) plus the duration badge.
const (
	homeURL = siteOrigin

	searchInputSel  = "input.nav-search-input"
	searchButtonSel = "div.nav-search-btn"

	cardSel     = "div.video-list div.bili-video-card__wrap"
	titleSel    = "h3.bili-video-card__info--tit"
	authorSel   = "span.bili-video-card__info--author"
	dateSel     = "span.bili-video-card__info--date"
	linkSel     = `a[target="_blank"]`
	statsSel    = "div.bili-video-card__stats"
	statsItem   = "span.bili-video-card__stats--item"
	durationSel = "span.bili-video-card__stats__duration"

	nextPageSel = "div.vui_pagenation--btns button"
)

// Browser owns one rod browser instance. A single crawl run holds it
// exclusively; search sessions are tabs within it.
type Browser struct {
	browser      *rod.Browser
	state        *StorageState
	navTimeout   time.Duration
	fieldTimeout time.Duration
	logger       *slog.Logger
}

func NewBrowser(cfg *config.Config, logger *slog.Logger) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Browser.Headless).
		NoSandbox(true)
	if cfg.Browser.ChromePath != "" {
		l = l.Bin(cfg.Browser.ChromePath)
	}

	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	var state *StorageState
	if cfg.Browser.ContextStorage != "" {
		state, err = LoadStorageState(cfg.Browser.ContextStorage)
		if err != nil {
			_ = browser.Close()
			return nil, err
		}
		if err := browser.SetCookies(state.CookieParams()); err != nil {
			_ = browser.Close()
			return nil, fmt.Errorf("inject session cookies: %w", err)
		}
		logger.Info("persisted session loaded",
			slog.String("path", cfg.Browser.ContextStorage),
			slog.Int("cookies", len(state.Cookies)))
	}

	return &Browser{
		browser:      browser,
		state:        state,
		navTimeout:   cfg.GetNavTimeout(),
		fieldTimeout: cfg.GetFieldTimeout(),
		logger:       logger,
	}, nil
}

func (b *Browser) Close() error {
	return b.browser.Close()
}

// Open navigates to the site, fills the search box with the keyword and
// submits it. The site opens the results in a new tab, which becomes the
// page source.
func (b *Browser) Open(ctx context.Context, keyword string) (PageSource, error) {
	home, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: homeURL})
	if err != nil {
		return nil, fmt.Errorf("open home page: %w", err)
	}

	if err := home.Context(ctx).Timeout(b.navTimeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("load home page: %w", err)
	}

	if b.state != nil {
		b.restoreLocalStorage(home)
	}

	input, err := home.Context(ctx).Timeout(b.navTimeout).Element(searchInputSel)
	if err != nil {
		return nil, fmt.Errorf("find search input: %w", err)
	}
	if err := input.Input(keyword); err != nil {
		return nil, fmt.Errorf("fill keyword: %w", err)
	}

	button, err := home.Context(ctx).Timeout(b.navTimeout).Element(searchButtonSel)
	if err != nil {
		return nil, fmt.Errorf("find search button: %w", err)
	}

	wait := home.WaitOpen()
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}

	results, err := wait()
	if err != nil {
		return nil, fmt.Errorf("wait for results tab: %w", err)
	}
	if err := results.Context(ctx).Timeout(b.navTimeout).WaitLoad(); err != nil {
		b.logger.Warn("results tab load wait failed, continuing",
			slog.String("keyword", keyword),
			slog.String("error", err.Error()))
	}

	b.logger.Info("search session opened", slog.String("keyword", keyword))

	return &browserPage{
		page:         results,
		home:         home,
		fieldTimeout: b.fieldTimeout,
		logger:       b.logger,
	}, nil
}

func (b *Browser) restoreLocalStorage(page *rod.Page) {
	for _, kv := range b.state.LocalStorage(siteOrigin) {
		if _, err := page.Eval(`(k, v) => localStorage.setItem(k, v)`, kv.Name, kv.Value); err != nil {
			b.logger.Warn("restore localStorage entry failed",
				slog.String("key", kv.Name),
				slog.String("error", err.Error()))
		}
	}
}

type browserPage struct {
	page         *rod.Page
	home         *rod.Page
	fieldTimeout time.Duration
	logger       *slog.Logger
}

func (p *browserPage) Cards(ctx context.Context) ([]Card, error) {
	els := collectAll(ctx, p.page, cardSel, p.fieldTimeout)
	cards := make([]Card, 0, len(els))
	for _, el := range els {
		cards = append(cards, &browserCard{root: el, timeout: p.fieldTimeout})
	}
	return cards, nil
}

// Advance clicks the last control in the pagination bar ("next page"). The
// click is a blind action: nothing verifies the content changed.
func (p *browserPage) Advance(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Timeout(p.fieldTimeout).Element(nextPageSel); err != nil {
		return fmt.Errorf("%w: control not found: %v", ErrPagination, err)
	}
	buttons, err := p.page.Context(ctx).Elements(nextPageSel)
	if err != nil || len(buttons) == 0 {
		return fmt.Errorf("%w: control not found", ErrPagination)
	}

	next := buttons[len(buttons)-1]
	if err := next.Context(ctx).Timeout(p.fieldTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: click: %v", ErrPagination, err)
	}
	return nil
}

func (p *browserPage) Close() error {
	if err := p.page.Close(); err != nil {
		return err
	}
	return p.home.Close()
}

// collectAll waits for the first match, then gathers every current match.
// No match within the timeout yields an empty slice, not an error.
func collectAll(ctx context.Context, page *rod.Page, sel string, timeout time.Duration) rod.Elements {
	if _, err := page.Context(ctx).Timeout(timeout).Element(sel); err != nil {
		return nil
	}
	els, err := page.Context(ctx).Elements(sel)
	if err != nil {
		return nil
	}
	return els
}

type browserCard struct {
	root    *rod.Element
	timeout time.Duration
}

func (c *browserCard) region(ctx context.Context, sel string) (*rod.Element, error) {
	el, err := c.root.Context(ctx).Timeout(c.timeout).Element(sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFieldUnavailable, sel)
	}
	return el, nil
}

func (c *browserCard) text(ctx context.Context, sel string) (string, error) {
	el, err := c.region(ctx, sel)
	if err != nil {
		return "", err
	}
	s, err := el.Context(ctx).Timeout(c.timeout).Text()
	if err != nil {
		return "", fmt.Errorf("%w: %s text", ErrFieldUnavailable, sel)
	}
	return strings.TrimSpace(s), nil
}

func (c *browserCard) attribute(ctx context.Context, sel, name string) (string, error) {
	el, err := c.region(ctx, sel)
	if err != nil {
		return "", err
	}
	v, err := el.Context(ctx).Timeout(c.timeout).Attribute(name)
	if err != nil || v == nil {
		return "", fmt.Errorf("%w: %s[%s]", ErrFieldUnavailable, sel, name)
	}
	return strings.TrimSpace(*v), nil
}

// statsText reads the idx-th item of the stats region. Index 0 is views,
// index 1 is barrages; a card with a single stat has no index 1.
func (c *browserCard) statsText(ctx context.Context, idx int) (string, error) {
	stats, err := c.region(ctx, statsSel)
	if err != nil {
		return "", err
	}
	if _, err := stats.Context(ctx).Timeout(c.timeout).Element(statsItem); err != nil {
		return "", fmt.Errorf("%w: stats items", ErrFieldUnavailable)
	}

	items, err := stats.Context(ctx).Elements(statsItem)
	if err != nil || idx >= len(items) {
		return "", fmt.Errorf("%w: stats item %d", ErrFieldUnavailable, idx)
	}

	s, err := items[idx].Context(ctx).Timeout(c.timeout).Text()
	if err != nil {
		return "", fmt.Errorf("%w: stats item %d text", ErrFieldUnavailable, idx)
	}
	return strings.TrimSpace(s), nil
}

func (c *browserCard) Title(ctx context.Context) (string, error) {
	return c.attribute(ctx, titleSel, "title")
}

func (c *browserCard) Link(ctx context.Context) (string, error) {
	return c.attribute(ctx, linkSel, "href")
}

func (c *browserCard) Author(ctx context.Context) (string, error) {
	return c.text(ctx, authorSel)
}

func (c *browserCard) Date(ctx context.Context) (string, error) {
	return c.text(ctx, dateSel)
}

func (c *browserCard) Views(ctx context.Context) (string, error) {
	return c.statsText(ctx, 0)
}

func (c *browserCard) Barrages(ctx context.Context) (string, error) {
	return c.statsText(ctx, 1)
}

func (c *browserCard) Duration(ctx context.Context) (string, error) {
	return c.text(ctx, durationSel)
}
