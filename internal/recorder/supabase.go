package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"VolSentinel/internal/model"
)

// Event names recorded into the datastore.
const (
	EventSnapshot  = "deribit_vbi_snapshot"
	EventDegraded  = "deribit_vbi_degraded"
	EventHeartbeat = "deribit_vbi_heartbeat"
)

// SupabaseRecorder posts one row per event to a Supabase REST table.
type SupabaseRecorder struct {
	url    string
	key    string
	table  string
	client *http.Client
}

// NewSupabaseRecorder creates a recorder targeting /rest/v1/<table>.
func NewSupabaseRecorder(url, key, table string) *SupabaseRecorder {
	return &SupabaseRecorder{
		url:    url,
		key:    key,
		table:  table,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *SupabaseRecorder) RecordCycle(res *model.VbiResult) error {
	res.Sanitize()
	event := EventSnapshot
	if res.Degraded() {
		event = EventDegraded
	}
	return r.post(event, res.TsUnixMs, res.Symbol, res)
}

func (r *SupabaseRecorder) RecordHeartbeat(tsUnixMs int64) error {
	data := map[string]any{
		"ts_unix_ms": tsUnixMs,
		"symbol":     "SYSTEM",
		"status":     "alive",
	}
	return r.post(EventHeartbeat, tsUnixMs, "SYSTEM", data)
}

func (r *SupabaseRecorder) Close() error { return nil }

func (r *SupabaseRecorder) post(event string, ts int64, symbol string, data any) error {
	body, err := json.Marshal(map[string]any{
		"ts":     ts,
		"event":  event,
		"symbol": symbol,
		"data":   data,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.url+"/rest/v1/"+r.table, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("supabase status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
