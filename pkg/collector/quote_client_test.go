package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuoteAPIClientFetchQuotes(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"symbol":"AAPL","name":"Apple Inc.","price":187.5,"change":-10.35,"changesPercentage":-5.23,"timestamp":1709283600},
			{"symbol":"msft","name":"Microsoft","price":410.1,"change":1.2,"changesPercentage":0.29,"timestamp":0}
		]`))
	}))
	defer srv.Close()

	client := NewQuoteAPIClient("secret", srv.URL+"/")
	quotes, err := client.FetchQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	require.Equal(t, "/quote/AAPL,MSFT", gotPath)
	require.Equal(t, "secret", gotKey)
	require.Len(t, quotes, 2)
	require.Equal(t, "AAPL", quotes[0].Symbol)
	require.InDelta(t, -5.23, quotes[0].ChangePercent, 1e-9)
	require.Equal(t, int64(1709283600), quotes[0].Timestamp.Unix())
	require.Equal(t, "MSFT", quotes[1].Symbol)
	require.False(t, quotes[1].Timestamp.IsZero())
}

func TestQuoteAPIClientErrorShapes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "non-200", status: http.StatusTooManyRequests, body: `[]`},
		{name: "error object", status: http.StatusOK, body: `{"Error Message":"Invalid API KEY."}`},
		{name: "success false", status: http.StatusOK, body: `{"success":false}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "bad array", status: http.StatusOK, body: `[{"symbol":1}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewQuoteAPIClient("k", srv.URL).FetchQuotes(context.Background(), []string{"AAPL"})
			require.Error(t, err)
		})
	}
}

func TestQuoteAPIClientProviderErrorIsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"limit reached"}`))
	}))
	defer srv.Close()

	_, err := NewQuoteAPIClient("k", srv.URL).FetchQuotes(context.Background(), []string{"AAPL"})
	require.True(t, errors.Is(err, ErrProvider))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestWithHTTPClientAndBaseURL(t *testing.T) {
	called := false
	client := NewQuoteAPIClient("k", "http://unused",
		WithBaseURL("http://quotes.local/api/"),
		WithHTTPClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
			called = true
			require.Equal(t, "quotes.local", req.URL.Host)
			require.Equal(t, "/api/quote/TSLA", req.URL.Path)
			return nil, errors.New("offline")
		})),
	)

	_, err := client.FetchQuotes(context.Background(), []string{"TSLA"})
	require.Error(t, err)
	require.True(t, called)
}

func TestFetchQuotesEmptyInput(t *testing.T) {
	quotes, err := NewQuoteAPIClient("k", "http://unused").FetchQuotes(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, quotes)
}
