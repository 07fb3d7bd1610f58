// Package urlcache resolves and memoizes the URLs of original-language page
// images.
//
// The external host only tells us a file name stem, so the Resolver tries the
// extensions png, jpg, gif, jpeg and webp in that order and stores the first
// hit with a "?c=YYYYMMDD" cache-busting suffix. A miss is never stored: the
// cache means "already found", not "known to be absent".
//
// Probing is pluggable through Prober. HTTPProber issues rate limited HEAD
// requests; FSProber checks a local filesystem and is what tests and offline
// mirrors use.
package urlcache
