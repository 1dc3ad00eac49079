package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

// Contract function names.
const (
	fnListSymbols       = "list_symbols"
	fnLatestPrediction  = "get_latest_prediction_by_timeframe"
	fnExpiredPrediction = "get_expired_predictions"
	fnRequestUpdate     = "request_update"
	fnRecordActualPrice = "record_actual_price"
	fnAddSymbol         = "add_symbol"
)

// Service is the contract gateway: it wraps the RPC client with the
// contract address, response normalization, and the receipt-wait policy.
type Service struct {
	client          *Client
	contractAddress string
	receiptRetries  int
	receiptInterval time.Duration
	log             *logger.Logger
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithReceiptRetries sets how many receipt polls to attempt per write.
func WithReceiptRetries(n int) ServiceOption {
	return func(s *Service) {
		s.receiptRetries = n
	}
}

// WithReceiptInterval sets the delay between receipt polls.
func WithReceiptInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.receiptInterval = d
	}
}

// NewService creates the contract gateway.
func NewService(client *Client, contractAddress string, log *logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		client:          client,
		contractAddress: contractAddress,
		receiptRetries:  20,
		receiptInterval: 3 * time.Second,
		log:             log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Health performs a lightweight read to verify the node and contract answer.
func (s *Service) Health(ctx context.Context) error {
	var raw json.RawMessage
	if err := s.client.ReadContract(ctx, s.contractAddress, fnListSymbols, []interface{}{}, &raw); err != nil {
		return fmt.Errorf("ledger health check: %w", err)
	}
	return nil
}

// ListSymbols returns the registered symbols, uppercased.
func (s *Service) ListSymbols(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := s.client.ReadContract(ctx, s.contractAddress, fnListSymbols, []interface{}{}, &raw); err != nil {
		return nil, fmt.Errorf("read %s: %w", fnListSymbols, err)
	}
	symbols, err := normalizeSymbolList(raw)
	if err != nil {
		return nil, err
	}
	return symbols, nil
}

// LatestPrediction returns the newest prediction for a (symbol, timeframe)
// slot, or nil when the contract has none.
func (s *Service) LatestPrediction(ctx context.Context, symbol string, tf models.Timeframe) (models.PredictionRecord, error) {
	var raw json.RawMessage
	err := s.client.ReadContract(ctx, s.contractAddress, fnLatestPrediction, []interface{}{symbol, tf.String()}, &raw)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fnLatestPrediction, err)
	}
	return decodePrediction(raw)
}

// ExpiredPredictions returns up to limit expired-but-unresolved predictions
// for one slot.
func (s *Service) ExpiredPredictions(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.PredictionRecord, error) {
	var raw json.RawMessage
	err := s.client.ReadContract(ctx, s.contractAddress, fnExpiredPrediction, []interface{}{symbol, tf.String(), limit}, &raw)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fnExpiredPrediction, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode expired predictions: %w", err)
	}
	records := make([]models.PredictionRecord, 0, len(items))
	for _, item := range items {
		rec, err := decodePrediction(item)
		if err != nil || rec == nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// RequestUpdate submits a forecast-update transaction for one slot. The
// context payload is validated and re-minified before submission so the
// contract always stores a canonical form.
func (s *Service) RequestUpdate(ctx context.Context, symbol string, tf models.Timeframe, marketContext string) (models.SubmissionResult, error) {
	cleaned, err := normalizeJSON(marketContext)
	if err != nil {
		return models.SubmissionResult{}, fmt.Errorf("invalid market context: %w", err)
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return models.SubmissionResult{}, fmt.Errorf("symbol cannot be empty")
	}
	if _, ok := tf.Duration(); !ok {
		return models.SubmissionResult{}, fmt.Errorf("invalid timeframe %q", tf)
	}

	s.log.Info("submitting update",
		logger.String("symbol", sym),
		logger.String("timeframe", tf.String()),
		logger.Int("context_bytes", len(cleaned)))

	return s.write(ctx, fnRequestUpdate, []interface{}{sym, cleaned, tf.String()})
}

// RecordActualPrice records an observed outcome against a prediction.
// Reconciliation writes are fire-and-forget: the next cycle re-reads the
// expired set, so there is no receipt wait here.
func (s *Service) RecordActualPrice(ctx context.Context, predictionID, price string) (models.SubmissionResult, error) {
	if predictionID == "" {
		return models.SubmissionResult{}, fmt.Errorf("prediction id cannot be empty")
	}
	txHash, err := s.client.WriteContract(ctx, s.contractAddress, fnRecordActualPrice, []interface{}{predictionID, price})
	if err != nil {
		return models.SubmissionResult{}, fmt.Errorf("write %s: %w", fnRecordActualPrice, err)
	}
	return models.SubmissionResult{TxHash: txHash}, nil
}

// AddSymbol registers a new symbol on the contract.
func (s *Service) AddSymbol(ctx context.Context, symbol, description string) (models.SubmissionResult, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return models.SubmissionResult{}, fmt.Errorf("symbol cannot be empty")
	}
	s.log.Info("adding symbol", logger.String("symbol", sym))
	return s.write(ctx, fnAddSymbol, []interface{}{sym, description})
}

// write submits a transaction and waits for its receipt. A write whose
// receipt never arrives within the wait window is still reported as
// submitted, just unconfirmed; only the submission itself can fail.
func (s *Service) write(ctx context.Context, function string, args []interface{}) (models.SubmissionResult, error) {
	txHash, err := s.client.WriteContract(ctx, s.contractAddress, function, args)
	if err != nil {
		return models.SubmissionResult{}, fmt.Errorf("write %s: %w", function, err)
	}

	for attempt := 0; attempt < s.receiptRetries; attempt++ {
		select {
		case <-ctx.Done():
			return models.SubmissionResult{TxHash: txHash}, nil
		case <-time.After(s.receiptInterval):
		}

		receipt, err := s.client.TransactionReceipt(ctx, txHash)
		if err != nil {
			s.log.Debug("receipt poll failed",
				logger.String("tx_hash", txHash),
				logger.Error(err))
			continue
		}
		if receipt.Accepted() {
			s.log.Info("transaction accepted",
				logger.String("tx_hash", txHash),
				logger.String("receipt_id", receipt.ID))
			return models.SubmissionResult{TxHash: txHash, Confirmed: true}, nil
		}
	}

	s.log.Warn("transaction submitted but not yet accepted",
		logger.String("function", function),
		logger.String("tx_hash", txHash))
	return models.SubmissionResult{TxHash: txHash}, nil
}

// normalizeJSON validates a JSON document and returns its minified form.
func normalizeJSON(doc string) (string, error) {
	if !json.Valid([]byte(doc)) {
		return "", fmt.Errorf("payload is not valid JSON")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(doc)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// decodePrediction flattens a contract prediction object into a string map.
// Scalar values are stringified; nested values keep their JSON encoding,
// which preserves the embedded market-context document untouched.
func decodePrediction(raw json.RawMessage) (models.PredictionRecord, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	rec := make(models.PredictionRecord, len(obj))
	for k, v := range obj {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			rec[k] = str
			continue
		}
		rec[k] = string(v)
	}
	return rec, nil
}
