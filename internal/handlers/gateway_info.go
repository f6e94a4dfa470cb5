package handlers

import (
	"net/http"

	"github.com/PortNumber53/payarc-mid/backend/internal/config"
)

// TestModeNotice is shown with the payment form while test mode is on.
const TestModeNotice = "TEST MODE ENABLED. Use test card numbers only (e.g., 4012000098765439, Exp: 12/2025, CVV: 999)."

type gatewayInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	TestMode    bool   `json:"test_mode"`
	Notice      string `json:"notice,omitempty"`
}

// GatewayInfo describes the payment method for the storefront. It never
// includes credentials.
func GatewayInfo(cfg config.Gateway) http.HandlerFunc {
	info := gatewayInfo{
		ID:          "payarc_mid",
		Title:       cfg.Title,
		Description: cfg.Description,
		Enabled:     cfg.Enabled,
		TestMode:    cfg.TestMode,
	}
	if cfg.TestMode {
		info.Notice = TestModeNotice
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, info)
	}
}
