// Package admin is the application layer behind the HTTP API and the CLI.
//
// One Service call is one reconciliation cycle: it reloads the catalog,
// rescans the site and answers from that fresh state. SaveData applies a full
// replacement catalog: it diffs the submitted ID set against the stored one,
// stages stub changes, commits the catalog and only then makes the stub
// changes final. A failed commit rolls the stubs back.
package admin
