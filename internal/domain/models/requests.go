package models

// PredictionQueryRequest selects one forecast slot.
type PredictionQueryRequest struct {
	Symbol    string `param:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" default:"24h" validate:"oneof=1h 4h 12h 24h 7d 30d"`
}

// AddSymbolRequest registers a new symbol on the contract.
type AddSymbolRequest struct {
	Symbol      string `json:"symbol" validate:"required,alphanum,min=2,max=10"`
	Description string `json:"description" validate:"required,max=256"`
}
