// Package artifact keeps the per-page stub files in step with the comic
// catalog.
//
// A stub is a one-line PHP file named <ID><ext> inside the stub directory
// that includes the shared page renderer. Apply stages creations and
// deletions inside a Txn: new stubs are renamed into place from a temp file,
// removed stubs are renamed to a hidden backup. Commit drops the backups once
// the catalog is written; Rollback undoes the run if it was not.
package artifact
