package source

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"bilisearch-crawler/internal/config"
	"bilisearch-crawler/internal/normalize"
)

// API is the JSON search-endpoint backend. Pages are addressed by number;
// advancing bumps the counter and paces the next fetch so the endpoint is
// not hammered.
type API struct {
	client  *resty.Client
	baseURL string
	delay   time.Duration
	logger  *slog.Logger
}

func NewAPI(cfg *config.Config, logger *slog.Logger) (*API, error) {
	client := resty.New()
	client.SetTimeout(cfg.GetAPIRequestTimeout())
	client.SetHeader("User-Agent", cfg.API.UserAgent)
	client.SetHeader("Referer", siteOrigin+"/")

	// Reuse the persisted session when one is configured; the endpoint
	// answers anonymous queries too, so a broken profile only costs auth.
	if cfg.Browser.ContextStorage != "" {
		state, err := LoadStorageState(cfg.Browser.ContextStorage)
		if err != nil {
			logger.Warn("persisted session unavailable for api client",
				slog.String("error", err.Error()))
		} else {
			client.SetCookies(state.Credential().Cookies())
		}
	}

	return &API{
		client:  client,
		baseURL: cfg.API.BaseURL,
		delay:   cfg.GetAPIPageDelay(),
		logger:  logger,
	}, nil
}

func (a *API) Open(ctx context.Context, keyword string) (PageSource, error) {
	return &apiPage{
		client:  a.client,
		baseURL: a.baseURL,
		keyword: keyword,
		page:    1,
		delay:   a.delay,
		logger:  a.logger,
	}, nil
}

// searchEnvelope is the endpoint's response shape: result groups keyed by
// result_type, of which only the "video" group matters here.
type searchEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Result []resultGroup `json:"result"`
	} `json:"data"`
}

type resultGroup struct {
	ResultType string           `json:"result_type"`
	Data       []map[string]any `json:"data"`
}

type apiPage struct {
	client  *resty.Client
	baseURL string
	keyword string
	page    int
	delay   time.Duration
	logger  *slog.Logger
}

func (p *apiPage) Cards(ctx context.Context) ([]Card, error) {
	var env searchEnvelope
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"keyword": p.keyword,
			"page":    strconv.Itoa(p.page),
		}).
		SetResult(&env).
		Get(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("search page %d: %w", p.page, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search page %d: status %s", p.page, resp.Status())
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("search page %d: api code %d: %s", p.page, env.Code, env.Message)
	}

	var cards []Card
	for _, group := range env.Data.Result {
		if group.ResultType != "video" {
			continue
		}
		for _, item := range group.Data {
			cards = append(cards, apiCard(item))
		}
	}

	p.logger.Debug("api page fetched",
		slog.String("keyword", p.keyword),
		slog.Int("page", p.page),
		slog.Int("cards", len(cards)))

	return cards, nil
}

func (p *apiPage) Advance(ctx context.Context) error {
	p.page++
	select {
	case <-time.After(p.delay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrPagination, ctx.Err())
	}
}

func (p *apiPage) Close() error { return nil }

// apiCard reads fields out of one entry of the "video" result group.
// Counters default to zero when the key is absent; identity fields fail.
type apiCard map[string]any

func (c apiCard) str(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFieldUnavailable, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not text", ErrFieldUnavailable, key)
	}
	return s, nil
}

// num renders a JSON number field as display text, defaulting when absent.
func (c apiCard) num(key, fallback string) (string, error) {
	v, ok := c[key]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case float64:
		return strconv.FormatInt(int64(n), 10), nil
	case string:
		return n, nil
	default:
		return "", fmt.Errorf("%w: %s is not a number", ErrFieldUnavailable, key)
	}
}

func (c apiCard) Title(ctx context.Context) (string, error) {
	s, err := c.str("title")
	if err != nil {
		return "", err
	}
	// API titles carry keyword-highlight markup.
	return normalize.StripMarkup(s), nil
}

func (c apiCard) Link(ctx context.Context) (string, error) {
	bvid, err := c.str("bvid")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("//www.bilibili.com/video/%s/", bvid), nil
}

func (c apiCard) Author(ctx context.Context) (string, error) {
	return c.str("author")
}

// Date yields the publish instant as unix seconds text.
func (c apiCard) Date(ctx context.Context) (string, error) {
	v, ok := c["pubdate"]
	if !ok {
		return "", fmt.Errorf("%w: pubdate", ErrFieldUnavailable)
	}
	n, ok := v.(float64)
	if !ok {
		return "", fmt.Errorf("%w: pubdate is not a number", ErrFieldUnavailable)
	}
	return strconv.FormatInt(int64(n), 10), nil
}

func (c apiCard) Views(ctx context.Context) (string, error) {
	return c.num("play", "0")
}

func (c apiCard) Barrages(ctx context.Context) (string, error) {
	return c.num("danmaku", "0")
}

func (c apiCard) Duration(ctx context.Context) (string, error) {
	v, ok := c["duration"]
	if !ok {
		return "0", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: duration is not text", ErrFieldUnavailable)
	}
	return s, nil
}
