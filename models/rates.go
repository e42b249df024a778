package models

// ============================================================================
// EXCHANGE RATES
// ============================================================================

// ExchangeRatesResponse mirrors the rate provider's current table. Rates are
// quoted against USD: rates["EUR"] is the price of 1 USD in EUR.
type ExchangeRatesResponse struct {
	BaseCurrency        string             `json:"base_currency"`
	Rates               map[string]float64 `json:"rates"`
	SupportedCurrencies []string           `json:"supported_currencies"`
	LastUpdated         string             `json:"last_updated"`
}

type ConvertRequest struct {
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	FromCurrency string  `json:"from_currency" binding:"required"`
	ToCurrency   string  `json:"to_currency" binding:"required"`
}

type ConvertResponse struct {
	OriginalAmount  float64 `json:"original_amount"`
	FromCurrency    string  `json:"from_currency"`
	ToCurrency      string  `json:"to_currency"`
	ConvertedAmount float64 `json:"converted_amount"`
	ExchangeRate    float64 `json:"exchange_rate"`
	LastUpdated     string  `json:"last_updated"`
}
