package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/splitbills/splitbills-api/models"
	"github.com/splitbills/splitbills-api/services"
)

type RatesHandler struct {
	Rates *services.ExchangeRateService
}

func NewRatesHandler(rates *services.ExchangeRateService) *RatesHandler {
	return &RatesHandler{Rates: rates}
}

// GetRates returns the current USD-quoted rate table.
func (h *RatesHandler) GetRates(c *gin.Context) {
	c.JSON(http.StatusOK, models.ExchangeRatesResponse{
		BaseCurrency:        "USD",
		Rates:               h.Rates.GetRates(),
		SupportedCurrencies: append([]string{"USD"}, services.SupportedCurrencies...),
		LastUpdated:         h.Rates.LastUpdated(),
	})
}

// Convert performs a one-off conversion between two supported currencies.
func (h *RatesHandler) Convert(c *gin.Context) {
	var req models.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	from, err := services.NormalizeCurrency(req.FromCurrency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := services.NormalizeCurrency(req.ToCurrency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	converted, rate, err := h.Rates.Convert(req.Amount, from, to)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedCurrency) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Conversion failed"})
		return
	}

	c.JSON(http.StatusOK, models.ConvertResponse{
		OriginalAmount:  req.Amount,
		FromCurrency:    from,
		ToCurrency:      to,
		ConvertedAmount: converted,
		ExchangeRate:    rate,
		LastUpdated:     h.Rates.LastUpdated(),
	})
}
