package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/stockgate/stockgate/internal/models"
)

// AlphaVantage fetches daily time series from the Alpha Vantage API.
// Outbound calls are paced with a client-side limiter so the gateway
// stays inside the provider's own request budget, and every call
// carries the http.Client timeout. There are no retries: a failed
// lookup fails the request that triggered it.
type AlphaVantage struct {
	cfg        Config
	httpClient *http.Client
	pacer      *rate.Limiter
}

// Config holds the upstream credential and call budget. APIKey is the
// service's own provider credential, not a caller key.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
}

const defaultBaseURL = "https://www.alphavantage.co/query"

func NewAlphaVantage(cfg Config) (*AlphaVantage, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("alpha vantage api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 5 // free tier
	}
	return &AlphaVantage{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		pacer:      rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1),
	}, nil
}

// dailySeries is the subset of the TIME_SERIES_DAILY_ADJUSTED payload
// the gateway reads. "Error Message" and "Note" arrive with HTTP 200
// and still mean failure.
type dailySeries struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
}

func (av *AlphaVantage) Fetch(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := av.pacer.Wait(ctx); err != nil {
		return nil, &Error{Symbol: symbol, Reason: "request cancelled while pacing", Err: err}
	}

	params := url.Values{
		"function":   {"TIME_SERIES_DAILY_ADJUSTED"},
		"symbol":     {symbol},
		"outputsize": {"compact"},
		"apikey":     {av.cfg.APIKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, av.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Symbol: symbol, Reason: "failed to build request", Err: err}
	}

	resp, err := av.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Symbol: symbol, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Symbol: symbol, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var payload dailySeries
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &Error{Symbol: symbol, Reason: "malformed response", Err: err}
	}
	return parseDailySeries(symbol, &payload)
}

func parseDailySeries(symbol string, payload *dailySeries) (*models.Quote, error) {
	if payload.ErrorMessage != "" {
		return nil, &Error{Symbol: symbol, Reason: payload.ErrorMessage}
	}
	if payload.Note != "" {
		return nil, &Error{Symbol: symbol, Reason: payload.Note}
	}
	if len(payload.TimeSeries) < 2 {
		return nil, &Error{Symbol: symbol, Reason: "no daily data for symbol"}
	}

	dates := make([]string, 0, len(payload.TimeSeries))
	for date := range payload.TimeSeries {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	previous, latest := dates[len(dates)-2], dates[len(dates)-1]

	open, err := barField(payload.TimeSeries[latest], "1. open")
	if err != nil {
		return nil, &Error{Symbol: symbol, Reason: "malformed daily bar", Err: err}
	}
	high, err := barField(payload.TimeSeries[latest], "2. high")
	if err != nil {
		return nil, &Error{Symbol: symbol, Reason: "malformed daily bar", Err: err}
	}
	low, err := barField(payload.TimeSeries[latest], "3. low")
	if err != nil {
		return nil, &Error{Symbol: symbol, Reason: "malformed daily bar", Err: err}
	}
	latestClose, err := barField(payload.TimeSeries[latest], "4. close")
	if err != nil {
		return nil, &Error{Symbol: symbol, Reason: "malformed daily bar", Err: err}
	}
	previousClose, err := barField(payload.TimeSeries[previous], "4. close")
	if err != nil {
		return nil, &Error{Symbol: symbol, Reason: "malformed daily bar", Err: err}
	}

	return &models.Quote{
		Symbol:    symbol,
		Open:      open,
		High:      high,
		Low:       low,
		Variation: math.Round((latestClose-previousClose)*100) / 100,
	}, nil
}

func barField(bar map[string]string, field string) (float64, error) {
	raw, ok := bar[field]
	if !ok {
		return 0, fmt.Errorf("missing field %q", field)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	return v, nil
}
