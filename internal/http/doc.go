// Package http provides the authenticated HTTP client used for content fetches.
//
// This package handles:
//   - Connection pooling for many concurrent range requests
//   - Bearer-token authorization
//   - Range requests with incremental progress callbacks
//   - Trimming trailing bytes a server sends beyond a requested range
//   - HEAD requests to get file metadata
//
// Fetches are never retried. A status other than 200 or 206 is returned as a
// *StatusError carrying the status and the attempted range.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	// Whole file, read in one step
//	data, err := client.Fetch(ctx, url, token, nil, nil)
//
//	// One partition, reporting progress per chunk
//	p := partition.Partition{Start: 0, End: 1 << 20}
//	data, err = client.Fetch(ctx, url, token, &p, func(n int64) { counter.Add(n) })
package http
