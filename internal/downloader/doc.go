// Package downloader downloads Drive files, splitting large ones into
// concurrently fetched byte-range partitions.
//
// # Modes
//
// A file of at least [PartitionThreshold] bytes, downloaded with a part count,
// is planned into partitions with [partition.Plan]. One goroutine fetches each
// partition, and the download waits for all of them before going on. A
// failure in one partition does not cancel its siblings. Smaller files are
// fetched with one unranged request.
//
// # Outcome
//
// Buffers are reassembled in partition order, so the order in which fetches
// finish never changes the output. If any partition fails, the download fails
// with [ErrDownloadFailed] and nothing is written. Nothing is retried; calling
// Download again starts over.
//
//	Idle -> Planning -> InFlight -> Assembling -> Written
//	                       \-> Failed
//
// # Folders
//
// [Downloader.DownloadFolder] downloads every file of a folder at once. Each
// file gets PartsPerFile(target, files) partitions, which keeps the number of
// fetches in flight near target. Every fetch reports to the same
// [progress.Sink].
package downloader
