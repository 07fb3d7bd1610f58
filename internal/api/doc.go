// Package api serves the admin operations over HTTP.
//
// # Routes
//
//	GET  /api/status                 catalog and site summary
//	GET  /api/comics                 reconciled view, most recent first
//	GET  /api/comics/{id}            one merged page
//	PUT  /api/comics                 save_data: full replacement catalog
//	POST /api/comics/diff            dry-run of a save
//	POST /api/comics/{id}/resolve    probe for the external original (?key=)
//	GET  /api/url-cache/{id}         cached URLs of a page
//	POST /api/url-cache              update_external_url_cache
//	GET  /api/characters             character catalog
//	GET  /api/settings/{user}        per-user settings
//	PUT  /api/settings/{user}
//
// # Errors
//
// Failures are returned as {"error": "..."} with the status chosen by
// services.HTTPStatus: 400 for invalid submissions, 404 for unknown pages,
// 409 for stale revisions, 422 for a legacy character catalog and 500 for
// storage failures.
//
// Every response carries an X-Request-ID header; a client supplied value is
// kept. The ID and the optional X-Admin-User header are attached to log lines.
package api
