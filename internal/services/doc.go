// Package services defines shared utilities consumed by the catalog engine,
// the admin API and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, admin user IDs and comic page IDs
//     for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent API statuses (bad request, conflict, not found, storage).
//
// Use these helpers when wiring new operations so error handling and
// observability stay uniform across entry points.
package services
