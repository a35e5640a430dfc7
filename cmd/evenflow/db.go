package main

import (
	"context"
	"fmt"
	"strings"

	"evenflow/internal/config"
	"evenflow/internal/store"
	"evenflow/internal/store/postgres"
	"evenflow/internal/store/sqlite"
)

// openStore picks a backend from the DSN scheme. An empty DSN means no
// persistence and yields a nil store.
func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	dsn := cfg.Database.DSN
	var (
		st  store.Store
		err error
	)
	switch {
	case dsn == "":
		return nil, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		st, err = sqlite.New(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		st, err = postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database dsn %q", dsn)
	}
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close(ctx)
		return nil, err
	}
	return st, nil
}
