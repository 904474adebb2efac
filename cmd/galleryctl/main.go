// Command galleryctl inspects and edits the image catalog offline, using the
// same backend configuration as the API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/abduss/imgbed/internal/config"
	"github.com/abduss/imgbed/internal/gallery"
	"github.com/abduss/imgbed/internal/storage"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	backends := &configuredCatalog{}

	code := run(ctx, os.Args[1:], backends.open, backends.Close)
	stop()
	os.Exit(code)
}

// run executes one command and releases the backends before returning the
// process exit code.
func run(ctx context.Context, args []string, open opener, release func()) int {
	defer release()

	cmd := newRootCmd(open)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// configuredCatalog opens the gallery backend named by the environment.
type configuredCatalog struct {
	pool *pgxpool.Pool
}

func (c *configuredCatalog) open(ctx context.Context) (*gallery.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Gallery.Backend == config.BackendPostgres {
		c.pool, err = storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	}
	backend, err := gallery.NewBackend(ctx, cfg.Gallery, c.pool)
	if err != nil {
		return nil, err
	}
	return gallery.NewStore(backend), nil
}

// Close releases the postgres pool when one was opened.
func (c *configuredCatalog) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}
