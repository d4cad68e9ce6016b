package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"VolSentinel/internal/config"
	"VolSentinel/internal/model"
)

// DeribitClient implements Provider over the Deribit public REST API.
type DeribitClient struct {
	baseURL        string
	client         *http.Client
	retries        int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
}

// NewDeribitClient creates a client with optional proxy support.
func NewDeribitClient(cfg *config.Config) *DeribitClient {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "deribit",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return &DeribitClient{
		baseURL:        strings.TrimRight(cfg.Deribit.BaseURL, "/"),
		client:         &http.Client{Transport: transport},
		retries:        cfg.Deribit.Retries,
		baseDelay:      1500 * time.Millisecond,
		attemptTimeout: time.Duration(cfg.Deribit.AttemptTimeoutSec) * time.Second,
		limiter:        rate.NewLimiter(rate.Limit(cfg.Deribit.RateLimitRPS), cfg.Deribit.RateLimitBurst),
		breaker:        breaker,
	}
}

func (c *DeribitClient) Name() string { return "deribit" }

// deribitInstrument is the wire shape of public/get_instruments entries.
type deribitInstrument struct {
	InstrumentName      string  `json:"instrument_name"`
	ExpirationTimestamp int64   `json:"expiration_timestamp"`
	OptionType          string  `json:"option_type"`
	Strike              float64 `json:"strike"`
}

func (c *DeribitClient) ListOptions(ctx context.Context, currency string) ([]model.Instrument, error) {
	var raw []deribitInstrument
	params := url.Values{
		"currency": {currency},
		"kind":     {"option"},
		"expired":  {"false"},
	}
	if err := c.getJSON(ctx, "public/get_instruments", params, &raw); err != nil {
		return nil, err
	}
	out := make([]model.Instrument, 0, len(raw))
	for _, ins := range raw {
		out = append(out, model.Instrument{
			Currency:     currency,
			ExpirationMs: ins.ExpirationTimestamp,
			Side:         model.OptionSide(ins.OptionType),
			Strike:       ins.Strike,
			Name:         ins.InstrumentName,
		})
	}
	return out, nil
}

func (c *DeribitClient) GetIndexPrice(ctx context.Context, currency string) (float64, error) {
	var result struct {
		IndexPrice float64 `json:"index_price"`
	}
	params := url.Values{"index_name": {strings.ToLower(currency) + "_usd"}}
	if err := c.getJSON(ctx, "public/get_index_price", params, &result); err != nil {
		return 0, err
	}
	return result.IndexPrice, nil
}

func (c *DeribitClient) GetBookSummary(ctx context.Context, instrument string) (*model.MarketQuote, error) {
	var raw []struct {
		InstrumentName string   `json:"instrument_name"`
		MarkIV         *float64 `json:"mark_iv"`
	}
	params := url.Values{"instrument_name": {instrument}}
	if err := c.getJSON(ctx, "public/get_book_summary_by_instrument", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return &model.MarketQuote{
		InstrumentName: raw[0].InstrumentName,
		MarkIV:         raw[0].MarkIV,
	}, nil
}

// getJSON performs a GET with bounded retry, exponential backoff plus jitter
// and a per-attempt timeout. A provider-reported error payload counts as a
// failed attempt even on HTTP 200.
func (c *DeribitClient) getJSON(ctx context.Context, method string, params url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit wait: %w", method, err)
		}
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.doOnce(ctx, method, params, out)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == c.retries-1 {
			break
		}
		delay := c.baseDelay*(1<<attempt) + time.Duration(rand.Int63n(int64(500*time.Millisecond)))
		log.Warn().Err(err).
			Str("method", method).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("deribit request failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %d attempts exhausted: %w", method, c.retries, lastErr)
}

func (c *DeribitClient) doOnce(ctx context.Context, method string, params url.Values, out any) error {
	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(actx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	var rpc struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpc.Error != nil {
		return fmt.Errorf("deribit error %d: %s", rpc.Error.Code, rpc.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(rpc.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
