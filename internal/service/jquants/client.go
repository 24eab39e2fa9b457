package jquants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"KabuFeed/internal/domain/models"
	"KabuFeed/internal/service/ratelimit"
	"KabuFeed/pkg/config"
	xhttp "KabuFeed/pkg/http"
	applogger "KabuFeed/pkg/logger"
)

const (
	// DefaultBaseURL is the production J-Quants API endpoint.
	DefaultBaseURL = "https://api.jquants.com/v1"

	// Refresh tokens are valid for a week upstream; renew a day early.
	refreshTokenTTL = 6 * 24 * time.Hour
	// ID tokens are valid for 24 hours; renew an hour early.
	idTokenTTL = 23 * time.Hour

	rateKey = "jquants"

	// Throttled and failing upstream responses are retried a few times
	// before a request is given up on.
	retryAttempts = 3
)

// Metrics is the subset of operational counters the client reports to.
type Metrics interface {
	RecordUpstreamRequest(endpoint, status string)
	RecordError(kind string)
}

type noopMetrics struct{}

func (noopMetrics) RecordUpstreamRequest(string, string) {}
func (noopMetrics) RecordError(string)                   {}

// Client talks to the J-Quants API. It owns the token lifecycle and
// rate limiting; callers just ask for data.
type Client struct {
	log        *applogger.Logger
	http       *xhttp.Client
	limiter    *ratelimit.Limiter
	metrics    Metrics
	baseURL    string
	ratePerSec float64
	rateBurst  float64
	maxWorkers int
	cacheDir   string
	creds      config.Credentials
	now        func() time.Time
	retryWait  time.Duration

	mu            sync.Mutex
	refreshToken  string
	refreshExpiry time.Time
	idToken       string
	idExpiry      time.Time
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithCredentials sets API credentials.
func WithCredentials(creds config.Credentials) Option {
	return func(c *Client) {
		c.creds = creds
	}
}

// WithRateLimit sets the request budget against the upstream API.
func WithRateLimit(perSec, burst float64) Option {
	return func(c *Client) {
		if perSec > 0 {
			c.ratePerSec = perSec
		}
		if burst > 0 {
			c.rateBurst = burst
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithMaxWorkers bounds the parallelism of range fetches.
func WithMaxWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithCacheDir enables the on-disk statements cache rooted at dir.
func WithCacheDir(dir string) Option {
	return func(c *Client) {
		c.cacheDir = dir
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a J-Quants API client.
func NewClient(log *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		log:        log,
		http:       xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		limiter:    ratelimit.New(),
		metrics:    noopMetrics{},
		baseURL:    DefaultBaseURL,
		ratePerSec: 5,
		rateBurst:  5,
		maxWorkers: 5,
		now:        time.Now,
		retryWait:  500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	// A configured refresh token is only a starting point: it goes into
	// the clearable cache so a stale one can be replaced by a fresh login.
	if c.creds.RefreshToken != "" {
		c.refreshToken = c.creds.RefreshToken
		c.refreshExpiry = c.now().Add(refreshTokenTTL)
	}

	return c
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("jquants: status %d: %s", e.Status, e.Body)
}

// retryable reports whether a status is worth another attempt: the API
// throttles with 429 and its gateway occasionally answers 5xx.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) do(ctx context.Context, opts *xhttp.RequestOptions, endpoint string, dest interface{}) error {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryWait << (attempt - 1)):
			}
		}

		if err := c.limiter.Wait(ctx, rateKey, c.rateBurst, c.ratePerSec); err != nil {
			return err
		}

		resp, err := c.http.SendRequest(ctx, opts)
		if err != nil {
			c.metrics.RecordUpstreamRequest(endpoint, "transport_error")
			return err
		}

		c.metrics.RecordUpstreamRequest(endpoint, fmt.Sprintf("%d", resp.StatusCode))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = &apiError{Status: resp.StatusCode, Body: string(body)}
			if retryable(resp.StatusCode) && attempt < retryAttempts-1 {
				c.log.Warn("jquants: upstream error, retrying",
					applogger.String("endpoint", endpoint),
					applogger.Int("status", resp.StatusCode),
				)
				continue
			}
			return lastErr
		}

		err = decodeBody(resp.Body, dest)
		resp.Body.Close()
		return err
	}
	return lastErr
}

func decodeBody(r io.Reader, dest interface{}) error {
	switch v := dest.(type) {
	case nil:
		return nil
	case *[]byte:
		body, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		*v = body
		return nil
	default:
		if err := json.NewDecoder(r).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

// ensureRefreshToken returns a refresh token, obtaining one from
// /token/auth_user when needed.
func (c *Client) ensureRefreshToken(ctx context.Context) (string, error) {
	if c.refreshToken != "" && c.now().Before(c.refreshExpiry) {
		return c.refreshToken, nil
	}
	if !c.creds.HasLogin() {
		return "", fmt.Errorf("jquants: no credentials configured")
	}

	var out struct {
		RefreshToken string `json:"refreshToken"`
	}
	err := c.do(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/token/auth_user",
		Body: map[string]string{
			"mailaddress": c.creds.MailAddress,
			"password":    c.creds.Password,
		},
	}, "token/auth_user", &out)
	if err != nil {
		return "", fmt.Errorf("auth_user: %w", err)
	}
	if out.RefreshToken == "" {
		return "", fmt.Errorf("auth_user: empty refresh token")
	}

	c.refreshToken = out.RefreshToken
	c.refreshExpiry = c.now().Add(refreshTokenTTL)
	c.log.Info("jquants: refresh token renewed")
	return c.refreshToken, nil
}

// ensureIDToken returns a valid ID token, renewing through
// /token/auth_refresh when the cached one expired. A 400 from the refresh
// endpoint with login credentials present means the refresh token itself
// went stale, so it is dropped and fetched once more.
func (c *Client) ensureIDToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idToken != "" && c.now().Before(c.idExpiry) {
		return c.idToken, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		rt, err := c.ensureRefreshToken(ctx)
		if err != nil {
			return "", err
		}

		var out struct {
			IDToken string `json:"idToken"`
		}
		err = c.do(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodPost,
			URL:         c.baseURL + "/token/auth_refresh",
			QueryParams: map[string][]string{"refreshtoken": {rt}},
		}, "token/auth_refresh", &out)
		if err != nil {
			var ae *apiError
			if errors.As(err, &ae) && ae.Status == http.StatusBadRequest && c.creds.HasLogin() && attempt == 0 {
				c.refreshToken = ""
				c.refreshExpiry = time.Time{}
				c.log.Warn("jquants: refresh token rejected, re-authenticating")
				continue
			}
			return "", fmt.Errorf("auth_refresh: %w", err)
		}
		if out.IDToken == "" {
			return "", fmt.Errorf("auth_refresh: empty id token")
		}

		c.idToken = out.IDToken
		c.idExpiry = c.now().Add(idTokenTTL)
		c.log.Info("jquants: id token renewed")
		return c.idToken, nil
	}

	return "", fmt.Errorf("auth_refresh: retries exhausted")
}

// getPaginated performs authorized GETs against path, following
// pagination_key until the result set is exhausted. onPage receives each
// raw page body.
func (c *Client) getPaginated(ctx context.Context, path string, params map[string]string, onPage func([]byte) (string, error)) error {
	token, err := c.ensureIDToken(ctx)
	if err != nil {
		return err
	}

	query := make(map[string][]string, len(params)+1)
	for k, v := range params {
		if v != "" {
			query[k] = []string{v}
		}
	}

	for {
		var body []byte
		err := c.do(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + path,
			Headers:     map[string]string{"Authorization": "Bearer " + token},
			QueryParams: query,
		}, path, &body)
		if err != nil {
			return err
		}

		next, err := onPage(body)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		query["pagination_key"] = []string{next}
	}
}

type page struct {
	PaginationKey string `json:"pagination_key"`
}

// DailyQuotes fetches end-of-day bars from /prices/daily_quotes. Provide
// either a code (optionally with from/to) or a single date.
func (c *Client) DailyQuotes(ctx context.Context, code, date, from, to string) ([]models.DailyQuote, error) {
	params := map[string]string{"code": code, "date": date, "from": from, "to": to}
	var out []models.DailyQuote
	err := c.getPaginated(ctx, "/prices/daily_quotes", params, func(body []byte) (string, error) {
		var p struct {
			page
			DailyQuotes []models.DailyQuote `json:"daily_quotes"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return "", fmt.Errorf("decode daily_quotes: %w", err)
		}
		out = append(out, p.DailyQuotes...)
		return p.PaginationKey, nil
	})
	if err != nil {
		return nil, err
	}
	sortDailyQuotes(out)
	return out, nil
}

// sortDailyQuotes orders bars by (Code, Date); pages can arrive in any order.
func sortDailyQuotes(quotes []models.DailyQuote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].Code != quotes[j].Code {
			return quotes[i].Code < quotes[j].Code
		}
		return quotes[i].Date < quotes[j].Date
	})
}

// ListedInfo fetches listed company info from /listed/info.
func (c *Client) ListedInfo(ctx context.Context, code string) ([]models.ListedCompany, error) {
	params := map[string]string{"code": code}
	var out []models.ListedCompany
	err := c.getPaginated(ctx, "/listed/info", params, func(body []byte) (string, error) {
		var p struct {
			page
			Info []models.ListedCompany `json:"info"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return "", fmt.Errorf("decode info: %w", err)
		}
		out = append(out, p.Info...)
		return p.PaginationKey, nil
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		c.enrichListed(&out[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// enrichListed fills sector and market names from the static tables when
// the upstream row only carries codes.
func (c *Client) enrichListed(lc *models.ListedCompany) {
	if lc.Sector17CodeName == "" {
		if s, ok := Sector17ByCode(lc.Sector17Code); ok {
			lc.Sector17CodeName = s.Name
		}
	}
	if lc.Sector33CodeName == "" {
		if s, ok := Sector33ByCode(lc.Sector33Code); ok {
			lc.Sector33CodeName = s.Name
		}
	}
	if lc.MarketCodeName == "" {
		if m, ok := MarketSegmentByCode(lc.MarketCode); ok {
			lc.MarketCodeName = m.Name
		}
	}
}

// ListedSections fetches sector listing from /listed/sections.
func (c *Client) ListedSections(ctx context.Context) ([]models.ListedSection, error) {
	var out []models.ListedSection
	err := c.getPaginated(ctx, "/listed/sections", nil, func(body []byte) (string, error) {
		var p struct {
			page
			Sections []models.ListedSection `json:"sections"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return "", fmt.Errorf("decode sections: %w", err)
		}
		out = append(out, p.Sections...)
		return p.PaginationKey, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SectorCode < out[j].SectorCode })
	return out, nil
}

// Topix fetches daily TOPIX bars from /indices/topix.
func (c *Client) Topix(ctx context.Context, from, to string) ([]models.TopixBar, error) {
	params := map[string]string{"from": from, "to": to}
	var out []models.TopixBar
	err := c.getPaginated(ctx, "/indices/topix", params, func(body []byte) (string, error) {
		var p struct {
			page
			Topix []models.TopixBar `json:"topix"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return "", fmt.Errorf("decode topix: %w", err)
		}
		out = append(out, p.Topix...)
		return p.PaginationKey, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// TradesSpec fetches weekly trading-by-investor-type records from
// /markets/trades_spec. Section may be empty for all sections.
func (c *Client) TradesSpec(ctx context.Context, section, from, to string) ([]models.TradesSpec, error) {
	params := map[string]string{"section": section, "from": from, "to": to}
	var out []models.TradesSpec
	err := c.getPaginated(ctx, "/markets/trades_spec", params, func(body []byte) (string, error) {
		var p struct {
			page
			TradesSpec []models.TradesSpec `json:"trades_spec"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return "", fmt.Errorf("decode trades_spec: %w", err)
		}
		out = append(out, p.TradesSpec...)
		return p.PaginationKey, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedDate != out[j].PublishedDate {
			return out[i].PublishedDate < out[j].PublishedDate
		}
		return out[i].Section < out[j].Section
	})
	return out, nil
}

// Statements fetches financial statement summaries from /fins/statements.
// Provide either a code or a disclosure date.
func (c *Client) Statements(ctx context.Context, code, date string) ([]models.Statement, error) {
	params := map[string]string{"code": code, "date": date}
	var out []models.Statement
	err := c.getPaginated(ctx, "/fins/statements", params, func(body []byte) (string, error) {
		var p struct {
			page
			Statements []models.Statement `json:"statements"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return "", fmt.Errorf("decode statements: %w", err)
		}
		out = append(out, p.Statements...)
		return p.PaginationKey, nil
	})
	if err != nil {
		return nil, err
	}
	sortStatements(out)
	return out, nil
}

// sortStatements orders records by (DisclosedUnixTime, DisclosureNumber).
// Both arrive as fixed-width numeric strings, so string order is numeric order.
func sortStatements(stmts []models.Statement) {
	sort.SliceStable(stmts, func(i, j int) bool {
		if stmts[i].DisclosedUnixTime != stmts[j].DisclosedUnixTime {
			return stmts[i].DisclosedUnixTime < stmts[j].DisclosedUnixTime
		}
		return stmts[i].DisclosureNumber < stmts[j].DisclosureNumber
	})
}

// Announcement fetches the next-day earnings announcement schedule from
// /fins/announcement.
func (c *Client) Announcement(ctx context.Context) ([]models.Announcement, error) {
	var out []models.Announcement
	err := c.getPaginated(ctx, "/fins/announcement", nil, func(body []byte) (string, error) {
		var p struct {
			page
			Announcement []models.Announcement `json:"announcement"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return "", fmt.Errorf("decode announcement: %w", err)
		}
		out = append(out, p.Announcement...)
		return p.PaginationKey, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}
