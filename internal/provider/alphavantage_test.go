package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyPayload = `{
	"Meta Data": {"2. Symbol": "GOOGL"},
	"Time Series (Daily)": {
		"2023-05-24": {
			"1. open": "120.0",
			"2. high": "122.0",
			"3. low": "109.0",
			"4. close": "110.0"
		},
		"2023-05-25": {
			"1. open": "110.0",
			"2. high": "111.0",
			"3. low": "99.0",
			"4. close": "100.0"
		}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *AlphaVantage {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	av, err := NewAlphaVantage(Config{
		BaseURL:           upstream.URL,
		APIKey:            "test-upstream-key",
		Timeout:           2 * time.Second,
		RequestsPerMinute: 6000, // no pacing delays in tests
	})
	require.NoError(t, err)
	return av
}

func TestFetch_ParsesDailySeries(t *testing.T) {
	var gotQuery map[string][]string
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(dailyPayload))
	})

	quote, err := av.Fetch(context.Background(), "GOOGL")
	require.NoError(t, err)

	assert.Equal(t, "GOOGL", quote.Symbol)
	assert.Equal(t, 110.0, quote.Open)
	assert.Equal(t, 111.0, quote.High)
	assert.Equal(t, 99.0, quote.Low)
	assert.Equal(t, -10.0, quote.Variation)

	assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", gotQuery["function"][0])
	assert.Equal(t, "GOOGL", gotQuery["symbol"][0])
	assert.Equal(t, "test-upstream-key", gotQuery["apikey"][0])
}

func TestFetch_VariationRoundsToTwoDecimals(t *testing.T) {
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"Time Series (Daily)": {
				"2023-05-24": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "100.005"},
				"2023-05-25": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "100.129"}
			}
		}`))
	})

	quote, err := av.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0.12, quote.Variation)
}

func TestFetch_UpstreamErrorStatus(t *testing.T) {
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := av.Fetch(context.Background(), "GOOGL")
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "GOOGL", provErr.Symbol)
	assert.Contains(t, provErr.Reason, "unexpected status 500")
}

func TestFetch_ProviderErrorMessageOn200(t *testing.T) {
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	})

	_, err := av.Fetch(context.Background(), "NOSUCH")
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Reason, "Invalid API call")
}

func TestFetch_ProviderNoteOn200(t *testing.T) {
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Call frequency exceeded."}`))
	})

	_, err := av.Fetch(context.Background(), "GOOGL")
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Reason, "frequency exceeded")
}

func TestFetch_TooFewBarsIsProviderError(t *testing.T) {
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"Time Series (Daily)": {
				"2023-05-25": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1"}
			}
		}`))
	})

	_, err := av.Fetch(context.Background(), "GOOGL")
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Reason, "no daily data")
}

func TestFetch_MalformedPayload(t *testing.T) {
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Time Series (Daily)": not-json`))
	})

	_, err := av.Fetch(context.Background(), "GOOGL")
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "malformed response", provErr.Reason)
}

func TestFetch_MalformedBarField(t *testing.T) {
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"Time Series (Daily)": {
				"2023-05-24": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1"},
				"2023-05-25": {"1. open": "abc", "2. high": "1", "3. low": "1", "4. close": "1"}
			}
		}`))
	})

	_, err := av.Fetch(context.Background(), "GOOGL")
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "malformed daily bar", provErr.Reason)
}

func TestFetch_ContextCancelled(t *testing.T) {
	av := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dailyPayload))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := av.Fetch(ctx, "GOOGL")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAlphaVantage_RequiresAPIKey(t *testing.T) {
	_, err := NewAlphaVantage(Config{})
	require.Error(t, err)
}
