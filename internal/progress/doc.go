// Package progress tracks aggregate download progress.
//
// Fetches report progress by delta through the [Sink] interface. Deltas from
// any number of concurrent fetches are summed into a [Counter], so a single
// total covers every partition of every file in a download.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Max:   partition.ProgressMax(size, parts, 1),
//	    Files: 1,
//	    Parts: parts,
//	})
//	reporter.Start()
//	defer reporter.Stop()
//
//	// reporter is a Sink
//	err := d.Download(ctx, file, dest, reporter, parts)
//
// [Tee] fans one delta out to several sinks, e.g. a Counter kept for the final
// summary and a terminal progress bar.
package progress
