// Package db provides database connection management for the profile stores.
//
// This package is responsible for:
//   - PostgreSQL connection pool initialization and schema bootstrap
//   - SQLite file setup (WAL journal, busy timeout, schema)
//   - Connection health checks
//
// Example usage:
//
//	pg, err := db.NewPostgres(ctx, cfg.Store, log)
//	if err != nil {
//	    return err
//	}
//	defer pg.Close()
//	if err := pg.EnsureSchema(ctx); err != nil {
//	    return err
//	}
package db
