package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VolSentinel/internal/config"
)

func testClient(t *testing.T, baseURL string) *DeribitClient {
	t.Helper()
	cfg, err := config.Load("nonexistent.yaml")
	require.NoError(t, err)
	cfg.Deribit.BaseURL = baseURL
	c := NewDeribitClient(cfg)
	c.baseDelay = time.Millisecond
	return c
}

func TestDeribitClient_ProviderErrorFieldIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":10009,"message":"not_found"}}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GetIndexPrice(context.Background(), "BTC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_found")
}

func TestDeribitClient_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"code":500,"message":"flaky"}}`)
			return
		}
		fmt.Fprint(w, `{"result":{"index_price":65000.5}}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	spot, err := c.GetIndexPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 65000.5, spot)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeribitClient_RetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"code":502,"message":"down"}}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GetIndexPrice(context.Background(), "BTC")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeribitClient_EmptyBookSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":[]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	quote, err := c.GetBookSummary(context.Background(), "BTC-27MAR26-60000-C")
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestDeribitClient_ListOptionsMapsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "option", r.URL.Query().Get("kind"))
		assert.Equal(t, "false", r.URL.Query().Get("expired"))
		fmt.Fprint(w, `{"result":[
			{"instrument_name":"BTC-27MAR26-60000-C","expiration_timestamp":1774569600000,"option_type":"call","strike":60000},
			{"instrument_name":"BTC-27MAR26-60000-P","expiration_timestamp":1774569600000,"option_type":"put","strike":60000}
		]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ins, err := c.ListOptions(context.Background(), "BTC")
	require.NoError(t, err)
	require.Len(t, ins, 2)
	assert.Equal(t, "BTC-27MAR26-60000-C", ins[0].Name)
	assert.Equal(t, int64(1774569600000), ins[0].ExpirationMs)
	assert.Equal(t, 60000.0, ins[1].Strike)
	assert.Equal(t, "BTC", ins[1].Currency)
}
