// Package partition splits a remote file into contiguous byte ranges and
// reassembles the fetched ranges into the original byte sequence.
//
// # Planning
//
// [Plan] divides a file of a known size into N partitions. Every partition
// gets size/N bytes; the first one also absorbs the remainder, so it is the
// largest by at most N-1 bytes:
//
//	parts, err := partition.Plan(1000, 3)
//	// [{0 334} {334 667} {667 1000}]
//
// Partitions are half-open ranges. [Partition.Header] renders the inclusive
// form used by the HTTP Range header.
//
// # Reassembly
//
// [Assemble] concatenates fetched buffers in ascending Start order, regardless
// of the order in which fetches completed. It refuses buffers whose length does
// not match their partition.
//
// [TrimExcess] drops trailing bytes beyond the requested length. Some content
// endpoints return a few bytes past the end of a range; the excess is always at
// the tail.
//
// # Folder sizing
//
// [PartsPerFile] spreads a target number of in-flight fetches across the files
// of a folder, and [ProgressMax] computes the maximum a progress display should
// use for a set of partitioned files.
package partition
