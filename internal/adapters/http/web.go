package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"classtrack/internal/adapters/cloud"
	"classtrack/internal/adapters/http/middleware"
	"classtrack/internal/adapters/http/perf"
	ledgerStore "classtrack/internal/adapters/storage/ledger"
	settingStore "classtrack/internal/adapters/storage/setting"
	studentStore "classtrack/internal/adapters/storage/student"
	"classtrack/internal/domain/report"
)

// Stores holds all storage dependencies.
type Stores struct {
	StudentStore studentStore.Store
	LedgerStore  ledgerStore.Store
	SettingStore settingStore.Store
}

// Options configures NewMux.
type Options struct {
	CSRFKey        []byte
	Production     bool
	TrustedOrigins []string
	SlowRequest    time.Duration
	ReportPolicy   report.EmptySections
	Limiter        *middleware.RateLimiter // nil creates one at RateLimitPerSecond
}

// ErrBadCSRFKey is returned for a configured key that is not 32 hex-encoded bytes.
var ErrBadCSRFKey = errors.New("csrf_key must be 64 hex characters (32 bytes)")

// LoadCSRFKey decodes the configured CSRF secret. In production the key
// must be set; elsewhere a random key is generated per start.
func LoadCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, ErrBadCSRFKey
		}
		return key, nil
	}
	if production {
		return nil, fmt.Errorf("csrf_key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set CLASSTRACK_CSRF_KEY so form tokens survive restarts")
	return key, nil
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global remote client (set by NewMux)
var remote cloud.Remote

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// reportPolicy is the default empty-section policy for GET /api/report.
var reportPolicy = report.EmptySectionsNil

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// timeNow is a variable for testability.
var timeNow = time.Now

// NewMux wires HTTP handlers for the app.
// PRE: s has every store set; opts.CSRFKey is 32 bytes
func NewMux(s *Stores, r cloud.Remote, collector *perf.Collector, opts Options) http.Handler {
	stores = s
	remote = r
	perfCollector = collector
	if opts.ReportPolicy != "" {
		reportPolicy = opts.ReportPolicy
	}

	mux := http.NewServeMux()
	registerRoutes(mux)

	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(RateLimitPerSecond, time.Second)
	}

	// Apply middleware: Timing -> RateLimit -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{Secure: opts.Production, TrustedOrigins: opts.TrustedOrigins}),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, opts.SlowRequest),
	)
}
