// Package app wires configuration, storage, and the web server into a
// runnable process.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/daybook/internal/platform/timeouts"
	"github.com/louisbranch/daybook/internal/services/web"
)

// Run opens storage, builds the server, and serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	cfg, err := cfg.Normalize()
	if err != nil {
		return err
	}

	openCtx, cancel := context.WithTimeout(ctx, timeouts.Startup)
	store, err := OpenStore(openCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store err=%v", err)
		}
	}()

	sweepExpiredChallenges(ctx, store, time.Now())

	webCfg, deps, err := Compose(cfg, store, time.Now)
	if err != nil {
		return err
	}
	server, err := web.NewServer(webCfg, deps)
	if err != nil {
		return fmt.Errorf("init web server: %w", err)
	}
	log.Printf("daybook starting env=%s storage=%s rp_id=%s", cfg.Environment, cfg.StorageDriver, cfg.Passkey.RPID)
	return server.ListenAndServe(ctx)
}
