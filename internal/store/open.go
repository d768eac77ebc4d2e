package store

import (
	"context"
	"fmt"

	"dynamite/internal/core"
)

// Closer is implemented by stores holding a database handle.
type Closer interface {
	Close() error
}

// Open builds the credential store selected by the configuration.
func Open(ctx context.Context, cfg core.CredentialsConfig) (core.CredentialStore, error) {
	switch cfg.Backend {
	case "", core.CredentialsBackendFile:
		return NewFileStore(cfg.Path), nil
	case core.CredentialsBackendSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case core.CredentialsBackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres credential backend requires a DSN")
		}
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.Backend)
	}
}
