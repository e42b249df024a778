package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/splitbills/splitbills-api/handlers"
	"github.com/splitbills/splitbills-api/services"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
	rg.POST("/auth/refresh", authHandler.Refresh)
}

// SetupEventRoutes sets up protected event, expense and settlement routes.
func SetupEventRoutes(rg *gin.RouterGroup, db *sql.DB, rates *services.ExchangeRateService, ws *handlers.WSHandler) {
	eventService := services.NewEventService(db)
	h := handlers.NewEventHandler(eventService, rates, ws)

	rg.POST("/events", h.CreateEvent)
	rg.GET("/events", h.GetEvents)
	rg.GET("/events/:id", h.GetEvent)

	// Expense shapes: advanced, equal split, custom shares
	rg.POST("/events/:id/expenses", h.AddExpense)
	rg.POST("/events/:id/expenses/simple", h.AddSimpleExpense)
	rg.POST("/events/:id/expenses/custom", h.AddCustomExpense)
	rg.PUT("/events/:id/expenses/:index", h.UpdateExpense)
	rg.DELETE("/events/:id/expenses/:index", h.DeleteExpense)

	rg.GET("/events/:id/summary", h.GetSummary)
	rg.GET("/events/:id/currencies", h.GetCurrencyInfo)
	rg.POST("/events/:id/finalize", h.Finalize)
}

// SetupUserRoutes sets up protected user routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB) {
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/users", userHandler.ListUsers)
	rg.GET("/users/me", userHandler.GetProfile)
	rg.PUT("/users/me", userHandler.UpdateProfile)
	rg.POST("/users/password", userHandler.ChangePassword)
	rg.POST("/users/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/users/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/users/2fa/disable", userHandler.DisableTOTP)
}

// SetupRatesRoutes sets up protected exchange-rate routes.
func SetupRatesRoutes(rg *gin.RouterGroup, rates *services.ExchangeRateService) {
	ratesHandler := handlers.NewRatesHandler(rates)

	rg.GET("/rates", ratesHandler.GetRates)
	rg.POST("/rates/convert", ratesHandler.Convert)
}
