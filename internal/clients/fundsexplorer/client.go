// Package fundsexplorer fetches per-fund pages from the public fund site.
package fundsexplorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/fiis/internal/clientdata"
	"github.com/aristath/fiis/internal/config"
	"github.com/aristath/fiis/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

// maxBodyBytes bounds how much of a page is read
const maxBodyBytes = 8 << 20

// Page is a fetched fund page decoded to UTF-8
type Page struct {
	Ticker string
	URL    string
	Body   string
}

// Client for the fund site
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
	cacheTTL  time.Duration
}

// NewClient creates a new fund site client.
// cacheRepo is optional - if nil or cfg.PageCacheTTL is zero, caching is disabled
func NewClient(cfg config.FetchConfig, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultFundSiteBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "Mozilla/5.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		log:       log.With().Str("client", "fundsexplorer").Logger(),
		cacheRepo: cacheRepo,
		cacheTTL:  cfg.PageCacheTTL,
	}
}

// URL returns the page address for ticker
func (c *Client) URL(ticker string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.ToLower(strings.TrimSpace(ticker)))
}

// Fetch retrieves the page for ticker with a single GET.
// Timeouts, transport failures and non-2xx responses return *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, ticker string) (*Page, error) {
	url := c.URL(ticker)

	if page := c.fromCache(ctx, ticker); page != nil {
		return page, nil
	}

	c.log.Debug().Str("ticker", ticker).Str("url", url).Msg("Fetching page")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{Ticker: ticker, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Ticker: ticker, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{
			Ticker:     ticker,
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.FetchError{Ticker: ticker, URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	page := &Page{
		Ticker: ticker,
		URL:    url,
		Body:   decodeBody(raw, resp.Header.Get("Content-Type")),
	}

	c.log.Debug().
		Str("ticker", ticker).
		Int("bytes", len(page.Body)).
		Msg("Fetched page")

	c.toCache(ctx, page)
	return page, nil
}

// decodeBody converts raw to UTF-8 using the declared or sniffed charset.
// Invalid sequences are dropped rather than failing the fetch.
func decodeBody(raw []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" || enc == nil {
		return strings.ToValidUTF8(string(raw), "")
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "")
	}
	return strings.ToValidUTF8(string(decoded), "")
}

func (c *Client) cacheEnabled() bool {
	return c.cacheRepo != nil && c.cacheTTL > 0
}

func (c *Client) fromCache(ctx context.Context, ticker string) *Page {
	if !c.cacheEnabled() {
		return nil
	}

	cached, err := c.cacheRepo.GetIfFresh(ctx, ticker)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to read page cache")
		return nil
	}
	if cached == nil {
		return nil
	}

	c.log.Debug().Str("ticker", ticker).Time("fetched_at", cached.FetchedAt).Msg("Cache hit")
	return &Page{Ticker: ticker, URL: cached.URL, Body: cached.Body}
}

func (c *Client) toCache(ctx context.Context, page *Page) {
	if !c.cacheEnabled() {
		return
	}

	err := c.cacheRepo.Store(ctx, clientdata.CachedPage{
		Ticker:    page.Ticker,
		URL:       page.URL,
		Body:      page.Body,
		FetchedAt: time.Now().UTC(),
	}, c.cacheTTL)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Warn().Err(err).Str("ticker", page.Ticker).Msg("Failed to cache page")
	}
}
