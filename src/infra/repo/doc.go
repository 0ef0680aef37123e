// Package repo contains the profile store implementations of ports.ProfileRepository.
//
//   - PostgresProfileRepository: pgx, row lock per update (SELECT ... FOR UPDATE)
//   - SQLiteProfileRepository: database/sql + go-sqlite3, compare-and-swap on version
//   - MemoryProfileRepository: process-local map, for tests and throwaway servers
//
// All repositories receive their connection via constructor injection and map
// missing rows to domain.ErrNotFound and duplicate keys to domain.ErrAlreadyExists.
package repo
