package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// fakeLedger is an httptest-backed ledger node. Contract reads and writes
// are dispatched on the function_name inside the first RPC param.
type fakeLedger struct {
	reads        map[string]interface{}
	txHash       string
	receipt      *Receipt
	receiptCalls atomic.Int64
	writeCalls   atomic.Int64
}

func (f *fakeLedger) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		var result interface{}
		switch req.Method {
		case "ledger_readContract":
			call := req.Params[0].(map[string]interface{})
			result = f.reads[call["function_name"].(string)]
		case "ledger_writeContract":
			f.writeCalls.Add(1)
			result = f.txHash
		case "ledger_getTransactionReceipt":
			f.receiptCalls.Add(1)
			result = f.receipt
		default:
			t.Errorf("unexpected method %s", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}
}

func newTestService(t *testing.T, fake *fakeLedger, opts ...ServiceOption) (*Service, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	client := NewClient(server.URL, WithMaxRetries(0))
	base := []ServiceOption{
		WithReceiptRetries(3),
		WithReceiptInterval(5 * time.Millisecond),
	}
	return NewService(client, "0xcontract", testLogger(t), append(base, opts...)...), server
}

func TestServiceListSymbols(t *testing.T) {
	fake := &fakeLedger{reads: map[string]interface{}{
		"list_symbols": []string{"btc", "eth"},
	}}
	svc, _ := newTestService(t, fake)

	symbols, err := svc.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "BTC" || symbols[1] != "ETH" {
		t.Errorf("unexpected symbols: %v", symbols)
	}
}

func TestServiceLatestPrediction(t *testing.T) {
	fake := &fakeLedger{reads: map[string]interface{}{
		"get_latest_prediction_by_timeframe": map[string]interface{}{
			"prediction_id":  "pred-1",
			"symbol":         "BTC",
			"timeframe":      "24h",
			"market_context": `{"symbol":"BTC","generated_at":"2026-08-31T00:00:00Z"}`,
		},
	}}
	svc, _ := newTestService(t, fake)

	rec, err := svc.LatestPrediction(context.Background(), "BTC", models.Timeframe24H)
	if err != nil {
		t.Fatalf("LatestPrediction: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.ID() != "pred-1" {
		t.Errorf("expected id pred-1, got %q", rec.ID())
	}
	if rec.RawContext() == "" {
		t.Error("expected embedded context")
	}
}

func TestServiceLatestPrediction_Missing(t *testing.T) {
	fake := &fakeLedger{reads: map[string]interface{}{
		"get_latest_prediction_by_timeframe": nil,
	}}
	svc, _ := newTestService(t, fake)

	rec, err := svc.LatestPrediction(context.Background(), "BTC", models.Timeframe1H)
	if err != nil {
		t.Fatalf("LatestPrediction: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %v", rec)
	}
}

func TestServiceExpiredPredictions(t *testing.T) {
	fake := &fakeLedger{reads: map[string]interface{}{
		"get_expired_predictions": []map[string]interface{}{
			{"prediction_id": "a", "actual_price": ""},
			{"prediction_id": "b", "actual_price": "101.00 USD"},
		},
	}}
	svc, _ := newTestService(t, fake)

	records, err := svc.ExpiredPredictions(context.Background(), "BTC", models.Timeframe1H, 50)
	if err != nil {
		t.Fatalf("ExpiredPredictions: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Resolved() {
		t.Error("first record should be unresolved")
	}
	if !records[1].Resolved() {
		t.Error("second record should be resolved")
	}
}

func TestServiceRequestUpdate_Confirmed(t *testing.T) {
	fake := &fakeLedger{
		txHash:  "0xabc",
		receipt: &Receipt{ID: "r-1", Status: StatusAccepted},
	}
	svc, _ := newTestService(t, fake)

	res, err := svc.RequestUpdate(context.Background(), "btc", models.Timeframe24H, `{"symbol": "BTC"}`)
	if err != nil {
		t.Fatalf("RequestUpdate: %v", err)
	}
	if res.TxHash != "0xabc" {
		t.Errorf("expected tx 0xabc, got %q", res.TxHash)
	}
	if !res.Confirmed {
		t.Error("expected confirmed submission")
	}
}

func TestServiceRequestUpdate_UnconfirmedIsNotAnError(t *testing.T) {
	// Receipt stays pending forever: submission must still succeed softly.
	fake := &fakeLedger{txHash: "0xdef", receipt: nil}
	svc, _ := newTestService(t, fake)

	res, err := svc.RequestUpdate(context.Background(), "BTC", models.Timeframe1H, `{}`)
	if err != nil {
		t.Fatalf("RequestUpdate: %v", err)
	}
	if res.TxHash != "0xdef" {
		t.Errorf("expected tx 0xdef, got %q", res.TxHash)
	}
	if res.Confirmed {
		t.Error("expected unconfirmed submission")
	}
	if got := fake.receiptCalls.Load(); got != 3 {
		t.Errorf("expected 3 receipt polls, got %d", got)
	}
}

func TestServiceRequestUpdate_RejectsInvalidInput(t *testing.T) {
	fake := &fakeLedger{txHash: "0xabc"}
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	if _, err := svc.RequestUpdate(ctx, "BTC", models.Timeframe24H, "{not json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := svc.RequestUpdate(ctx, "  ", models.Timeframe24H, "{}"); err == nil {
		t.Error("expected error for empty symbol")
	}
	if _, err := svc.RequestUpdate(ctx, "BTC", models.Timeframe("2h"), "{}"); err == nil {
		t.Error("expected error for unknown timeframe")
	}
	if got := fake.writeCalls.Load(); got != 0 {
		t.Errorf("expected no writes, got %d", got)
	}
}

func TestServiceRecordActualPrice_NoReceiptWait(t *testing.T) {
	fake := &fakeLedger{txHash: "0x123"}
	svc, _ := newTestService(t, fake)

	res, err := svc.RecordActualPrice(context.Background(), "pred-1", "104.25 USD")
	if err != nil {
		t.Fatalf("RecordActualPrice: %v", err)
	}
	if res.TxHash != "0x123" {
		t.Errorf("expected tx 0x123, got %q", res.TxHash)
	}
	if got := fake.receiptCalls.Load(); got != 0 {
		t.Errorf("expected no receipt polls, got %d", got)
	}
}

func TestNormalizeJSONMinifies(t *testing.T) {
	got, err := normalizeJSON("{\n  \"a\": 1,\n  \"b\": [1, 2]\n}")
	if err != nil {
		t.Fatalf("normalizeJSON: %v", err)
	}
	if got != `{"a":1,"b":[1,2]}` {
		t.Errorf("unexpected minified form: %s", got)
	}
}
