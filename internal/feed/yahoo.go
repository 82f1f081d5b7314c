package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"paper-trader/internal/errors"
	"paper-trader/internal/models"
	"paper-trader/pkg/utils"
)

const (
	defaultBaseURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// yahooChartResponse represents the Yahoo Finance Chart API response.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string  `json:"currency"`
				Symbol               string  `json:"symbol"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketTime    int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooFeed fetches quotes from the Yahoo Finance chart API. NSE symbols
// are suffixed with ".NS" on the wire.
type YahooFeed struct {
	baseURL    string
	exchange   models.Exchange
	httpClient *http.Client
	retry      utils.RetryConfig
}

// YahooOption configures a YahooFeed.
type YahooOption func(*YahooFeed)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(baseURL string) YahooOption {
	return func(f *YahooFeed) { f.baseURL = baseURL }
}

// WithExchange selects the exchange suffix applied to symbols.
func WithExchange(exchange models.Exchange) YahooOption {
	return func(f *YahooFeed) { f.exchange = exchange }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) YahooOption {
	return func(f *YahooFeed) { f.httpClient.Timeout = timeout }
}

// NewYahooFeed creates a Yahoo Finance quote source.
func NewYahooFeed(opts ...YahooOption) *YahooFeed {
	f := &YahooFeed{
		baseURL:  defaultBaseURL,
		exchange: models.NSE,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: utils.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// wireSymbol maps an exchange symbol to Yahoo's ticker format.
func (f *YahooFeed) wireSymbol(symbol string) string {
	switch f.exchange {
	case models.BSE:
		return symbol + ".BO"
	default:
		return symbol + ".NS"
	}
}

// Quote fetches the latest quote for a symbol, retrying transient
// failures with exponential backoff.
func (f *YahooFeed) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	quote, err := utils.RetryWithResult(ctx, f.retry, func() (*models.Quote, error) {
		return f.fetch(ctx, symbol)
	})
	if err != nil {
		return nil, errors.NewFeedError(symbol, "quote fetch failed", err)
	}
	return quote, nil
}

func (f *YahooFeed) fetch(ctx context.Context, symbol string) (*models.Quote, error) {
	u := fmt.Sprintf("%s/%s", f.baseURL, url.PathEscape(f.wireSymbol(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// Browser-like User-Agent to avoid bot detection
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data yahooChartResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	if data.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s - %s", data.Chart.Error.Code, data.Chart.Error.Description)
	}
	if len(data.Chart.Result) == 0 {
		return nil, errors.ErrNoData
	}

	meta := data.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, errors.ErrNoData
	}

	ts := time.Now()
	if meta.RegularMarketTime > 0 {
		ts = time.Unix(meta.RegularMarketTime, 0)
	}

	return &models.Quote{
		Symbol:    symbol,
		LTP:       meta.RegularMarketPrice,
		Low:       meta.RegularMarketDayLow,
		High:      meta.RegularMarketDayHigh,
		Timestamp: ts,
	}, nil
}
