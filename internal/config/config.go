package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TransactionType is the configured charge mode. Only sale is implemented;
// authorize is accepted so existing settings keep loading.
type TransactionType string

const (
	TransactionSale      TransactionType = "sale"
	TransactionAuthorize TransactionType = "authorize"
)

// Gateway is the immutable PayArc gateway configuration handed to every
// component at construction.
type Gateway struct {
	// Enabled toggles the checkout payment method.
	Enabled bool

	// Title and Description are shown to the buyer at checkout.
	Title       string
	Description string

	// TestMode selects the PayArc sandbox and the test access token.
	TestMode bool

	// LiveAPIKey and TestAPIKey are the PayArc access tokens.
	LiveAPIKey string
	TestAPIKey string

	// WebhookSecret is the shared HMAC secret for inbound webhooks.
	WebhookSecret string

	// Debug logs every processor request/response pair.
	Debug bool

	TransactionType TransactionType
}

// APIKey returns the access token for the selected environment.
func (g Gateway) APIKey() string {
	if g.TestMode {
		return g.TestAPIKey
	}
	return g.LiveAPIKey
}

// Config captures runtime configuration values used by the backend service.
type Config struct {
	// ServerAddress is the host:port pair the HTTP server listens on. Defaults to ":18111".
	ServerAddress string

	// DatabaseURL is the Postgres DSN used by database/sql.
	DatabaseURL string

	// RedisURL enables the distributed linkage lock when set.
	RedisURL string

	// SentryDSN enables error reporting when set.
	SentryDSN string

	// StoreURL is the public base URL of the storefront, used for payment page redirects.
	StoreURL string

	// PlatformHookToken protects the platform hook endpoints when set.
	PlatformHookToken string

	Gateway Gateway
}

const (
	defaultServerAddress = ":18111"
	defaultStoreURL      = "http://localhost:18111"
	defaultTitle         = "PayArc.Mid"
	defaultDescription   = "Pay securely using your credit card."

	envServerAddress     = "BACKEND_ADDR"
	envDatabaseURL       = "DATABASE_URL"
	envRedisURL          = "REDIS_URL"
	envSentryDSN         = "SENTRY_DSN"
	envStoreURL          = "STORE_URL"
	envPlatformHookToken = "PLATFORM_HOOK_TOKEN"

	envEnabled         = "PAYARC_ENABLED"
	envTitle           = "PAYARC_TITLE"
	envDescription     = "PAYARC_DESCRIPTION"
	envTestMode        = "PAYARC_TESTMODE"
	envLiveAPIKey      = "PAYARC_API_KEY"
	envTestAPIKey      = "PAYARC_TEST_API_KEY"
	envWebhookSecret   = "PAYARC_WEBHOOK_SECRET"
	envDebug           = "PAYARC_DEBUG"
	envTransactionType = "PAYARC_TRANSACTION_TYPE"
)

// Load reads configuration from environment variables, applies defaults, and returns
// a Config structure. Required values return an error when missing.
func Load() (Config, error) {
	databaseURL, err := DatabaseURLFromEnv()
	if err != nil {
		return Config{}, err
	}

	gw, err := loadGateway()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ServerAddress:     firstNonEmpty(os.Getenv(envServerAddress), defaultServerAddress),
		DatabaseURL:       databaseURL,
		RedisURL:          strings.TrimSpace(os.Getenv(envRedisURL)),
		SentryDSN:         strings.TrimSpace(os.Getenv(envSentryDSN)),
		StoreURL:          strings.TrimRight(firstNonEmpty(os.Getenv(envStoreURL), defaultStoreURL), "/"),
		PlatformHookToken: os.Getenv(envPlatformHookToken),
		Gateway:           gw,
	}

	return cfg, nil
}

// DatabaseURLFromEnv returns DATABASE_URL or an error when it is unset.
func DatabaseURLFromEnv() (string, error) {
	dsn := strings.TrimSpace(os.Getenv(envDatabaseURL))
	if dsn == "" {
		return "", fmt.Errorf("%s is required", envDatabaseURL)
	}
	return dsn, nil
}

func loadGateway() (Gateway, error) {
	enabled, err := boolEnv(envEnabled, true)
	if err != nil {
		return Gateway{}, err
	}
	testMode, err := boolEnv(envTestMode, true)
	if err != nil {
		return Gateway{}, err
	}
	debug, err := boolEnv(envDebug, false)
	if err != nil {
		return Gateway{}, err
	}

	gw := Gateway{
		Enabled:         enabled,
		Title:           firstNonEmpty(os.Getenv(envTitle), defaultTitle),
		Description:     firstNonEmpty(os.Getenv(envDescription), defaultDescription),
		TestMode:        testMode,
		LiveAPIKey:      strings.TrimSpace(os.Getenv(envLiveAPIKey)),
		TestAPIKey:      strings.TrimSpace(os.Getenv(envTestAPIKey)),
		WebhookSecret:   os.Getenv(envWebhookSecret),
		Debug:           debug,
		TransactionType: TransactionType(strings.ToLower(firstNonEmpty(os.Getenv(envTransactionType), string(TransactionSale)))),
	}

	switch gw.TransactionType {
	case TransactionSale, TransactionAuthorize:
	default:
		return Gateway{}, fmt.Errorf("invalid %s %q: must be sale or authorize", envTransactionType, gw.TransactionType)
	}

	if gw.Enabled && gw.APIKey() == "" {
		if gw.TestMode {
			return Gateway{}, fmt.Errorf("%s is required when test mode is enabled", envTestAPIKey)
		}
		return Gateway{}, fmt.Errorf("%s is required", envLiveAPIKey)
	}

	return gw, nil
}

// boolEnv accepts the usual strconv forms plus "yes"/"no" and "on"/"off".
func boolEnv(key string, fallback bool) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "":
		return fallback, nil
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
