// Package catalog models comic page records and the documents that store them.
//
// Two on-disk shapes exist for the comic catalog: the legacy flat map of ID to
// record (schema 1) and the versioned envelope {"schema_version": 2, "comics":
// {...}}. DecodeComics returns the matching Document variant, Normalize turns
// either into an entity map, and every write goes through EncodeComics, which
// always emits the current envelope. Migration therefore happens on the first
// explicit save and never as a side effect of reading.
//
// The character catalog follows the same envelope but refuses legacy
// documents outright (ErrLegacySchema); MigrateLegacyCharacters converts them
// on request.
//
// Provenance tags ("sources") are derived by ComputeSources on every load and
// are never read from or written to disk.
package catalog
