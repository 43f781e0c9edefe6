package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOneSignalSend(t *testing.T) {
	var got oneSignalRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/notifications", r.URL.Path)
		require.Equal(t, "Basic rest-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"b98881cc-1e94-4366-bbd9-db8f3429292b","recipients":1}`))
	}))
	defer srv.Close()

	p := NewOneSignalPusher("app-1", "rest-key", srv.URL, srv.Client())
	res, err := p.Send(context.Background(), PushMessage{
		UserID: "u1",
		Title:  "AAPL price alert",
		Body:   "AAPL dropped 5.23% to $187.50",
		Data:   map[string]string{"symbol": "AAPL"},
	})
	require.NoError(t, err)
	require.Equal(t, "b98881cc-1e94-4366-bbd9-db8f3429292b", res.ID)

	require.Equal(t, "app-1", got.AppID)
	require.Equal(t, []oneSignalFilter{{Field: "tag", Key: "user_id", Relation: "=", Value: "u1"}}, got.Filters)
	require.Equal(t, "AAPL price alert", got.Headings["en"])
	require.Equal(t, "AAPL dropped 5.23% to $187.50", got.Contents["en"])
	require.Equal(t, "AAPL", got.Data["symbol"])
}

func TestOneSignalFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "errors array", status: http.StatusOK, body: `{"id":"","recipients":0,"errors":["All included players are not subscribed"]}`},
		{name: "errors object", status: http.StatusOK, body: `{"id":"x","errors":{"invalid_external_user_ids":["u1"]}}`},
		{name: "garbage", status: http.StatusOK, body: `not-json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewOneSignalPusher("a", "k", srv.URL, nil).Send(context.Background(), PushMessage{UserID: "u1"})
			require.Error(t, err)
		})
	}
}

func TestOneSignalRejectionSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewOneSignalPusher("a", "k", srv.URL, nil).Send(context.Background(), PushMessage{UserID: "u1"})
	require.True(t, errors.Is(err, ErrPushRejected))
}

func TestHasErrors(t *testing.T) {
	require.False(t, hasErrors(nil))
	require.False(t, hasErrors(json.RawMessage(`null`)))
	require.False(t, hasErrors(json.RawMessage(`[]`)))
	require.True(t, hasErrors(json.RawMessage(`["x"]`)))
}
