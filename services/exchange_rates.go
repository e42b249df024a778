package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ============================================================================
// EXCHANGE RATE PROVIDER
// ============================================================================
// Thin client for a free USD-based rate feed. A fetched table is cached for
// 15 minutes; any transport or decode failure falls back to a fixed table so
// callers never see an error from this service.

const ratesCacheKey = "usd_rates"

// SupportedCurrencies are the non-USD currencies the provider quotes.
var SupportedCurrencies = []string{"EUR", "GBP", "ILS", "JPY", "CAD"}

type ExchangeRateService struct {
	APIURL string
	Client *http.Client

	cache *gocache.Cache
}

func NewExchangeRateService() *ExchangeRateService {
	apiURL := os.Getenv("EXCHANGE_RATE_API_URL")
	if apiURL == "" {
		apiURL = "https://api.exchangerate-api.com/v4/latest/USD"
	}

	return &ExchangeRateService{
		APIURL: apiURL,
		Client: &http.Client{Timeout: 10 * time.Second},
		cache:  gocache.New(15*time.Minute, 30*time.Minute),
	}
}

// GetRates returns the current rate table, keyed by currency code, quoted
// against USD. Serves the cached table when fresh, otherwise fetches; on any
// failure it logs and returns the static fallback table.
func (s *ExchangeRateService) GetRates() map[string]float64 {
	if cached, found := s.cache.Get(ratesCacheKey); found {
		return cached.(map[string]float64)
	}

	rates, err := s.fetchRates()
	if err != nil {
		log.Printf("⚠️ Exchange rate fetch failed, using fallback table: %v", err)
		return FallbackRates()
	}

	s.cache.Set(ratesCacheKey, rates, gocache.DefaultExpiration)
	return rates
}

// LastUpdated reports when the cached table was fetched, or "fallback" when
// the service is running on the static table.
func (s *ExchangeRateService) LastUpdated() string {
	if _, expiration, found := s.cache.GetWithExpiration(ratesCacheKey); found {
		return expiration.Add(-15 * time.Minute).UTC().Format(time.RFC3339)
	}
	return "fallback"
}

// Convert converts amount from one currency to another, routing through USD.
// Returns the converted amount and the effective rate.
func (s *ExchangeRateService) Convert(amount float64, from, to string) (float64, float64, error) {
	factor, err := conversionFactor(from, to, s.GetRates())
	if err != nil {
		return 0, 0, err
	}
	return round2(amount * factor), round4(factor), nil
}

func (s *ExchangeRateService) fetchRates() (map[string]float64, error) {
	resp, err := s.Client.Get(s.APIURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate feed returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	filtered := map[string]float64{}
	for _, code := range SupportedCurrencies {
		rate, ok := payload.Rates[code]
		if !ok || rate <= 0 {
			return nil, fmt.Errorf("rate feed response missing %s", code)
		}
		filtered[code] = round4(rate)
	}

	return filtered, nil
}

// FallbackRates is the known-safe static table used when the feed is
// unreachable or malformed.
func FallbackRates() map[string]float64 {
	return map[string]float64{
		"EUR": 0.85,
		"GBP": 0.73,
		"ILS": 3.7,
		"JPY": 110.0,
		"CAD": 1.25,
	}
}
