// Package main hosts the comicadmin CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the admin HTTP server and exposes the same
// catalog operations for the terminal: listing the reconciled catalog, diffing
// and saving replacement documents, schema migration, URL cache maintenance,
// per-user settings, and configuration scaffolding. Configuration and logging
// are resolved once in commandContext so subcommands only call the admin
// service.
//
// Keep this package lean: new behaviour belongs in internal/admin first and is
// surfaced here through a dedicated command or flag.
package main
