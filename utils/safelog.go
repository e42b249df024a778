// utils/safelog.go
// Logging helpers that mask personal data in production. In development the
// values pass through untouched.

package utils

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// IsProduction controls whether sensitive values are masked.
var IsProduction = os.Getenv("GIN_MODE") == "release" ||
	os.Getenv("ENVIRONMENT") == "production" ||
	os.Getenv("ENV") == "production"

// MaskEmail keeps the first character and the domain: j***@example.com
func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// MaskAmount hides monetary amounts in production logs.
func MaskAmount(amount float64) string {
	if !IsProduction {
		return fmt.Sprintf("%.2f", amount)
	}
	return "***"
}

// SafeInfo logs an informational line with pre-masked arguments.
func SafeInfo(format string, args ...interface{}) {
	log.Printf("ℹ️ "+format, args...)
}

// SafeError logs an error line; err messages are assumed non-sensitive.
func SafeError(format string, args ...interface{}) {
	log.Printf("❌ "+format, args...)
}
