package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/daybook/internal/services/auth/ceremony"
	"github.com/louisbranch/daybook/internal/services/auth/session"
	"github.com/louisbranch/daybook/internal/services/auth/storage"
	"github.com/louisbranch/daybook/internal/services/auth/storage/postgres"
	"github.com/louisbranch/daybook/internal/services/auth/storage/sqlite"
	"github.com/louisbranch/daybook/internal/services/web"
	"github.com/louisbranch/daybook/internal/services/web/platform/requestmeta"
)

// OpenStore opens the configured storage driver and applies migrations.
func OpenStore(ctx context.Context, cfg Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case DriverSQLite, "":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Compose resolves the session secret and builds the web server inputs
// around an open store.
func Compose(cfg Config, store storage.Store, clock func() time.Time) (web.Config, web.Dependencies, error) {
	if store == nil {
		return web.Config{}, web.Dependencies{}, fmt.Errorf("store is required")
	}
	if clock == nil {
		clock = time.Now
	}
	secret, err := session.ResolveSecret(cfg.Session, cfg.Environment)
	if err != nil {
		return web.Config{}, web.Dependencies{}, err
	}
	engine, err := ceremony.NewEngine(cfg.Passkey, store, store, store, ceremony.WithClock(clock))
	if err != nil {
		return web.Config{}, web.Dependencies{}, err
	}
	issuer, err := session.NewIssuer(secret, cfg.Session.Lifetime, clock)
	if err != nil {
		return web.Config{}, web.Dependencies{}, err
	}

	webCfg := web.Config{
		HTTPAddr:            cfg.HTTPAddr,
		SecureCookies:       !cfg.Environment.IsLocal(),
		RequestSchemePolicy: requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto},
	}
	deps := web.Dependencies{
		Ceremonies:   engine,
		Users:        store,
		Issuer:       issuer,
		Verifier:     session.NewVerifier(secret, clock),
		EdgeVerifier: session.NewEdgeVerifier(secret, clock),
	}
	return webCfg, deps, nil
}

// sweepExpiredChallenges drops challenges nobody can answer anymore. A
// failure only logs; stale rows are harmless.
func sweepExpiredChallenges(ctx context.Context, ledger storage.ChallengeLedger, now time.Time) {
	deleted, err := ledger.DeleteExpiredChallenges(ctx, now)
	if err != nil {
		log.Printf("challenge sweep failed err=%v", err)
		return
	}
	if deleted > 0 {
		log.Printf("challenge sweep deleted=%d", deleted)
	}
}
