// Package storage writes downloaded files to their destination.
//
// A destination is either a local file path or a gocloud bucket URL with the
// object key in the fragment:
//
//	/home/me/Videos/movie.mkv
//	mem://#movie.mkv
//	s3://my-bucket?region=us-east-1#videos/movie.mkv
//	gs://my-bucket#videos/movie.mkv
//
// Local paths are written through a fileblob bucket rooted at the parent
// directory, so every write lands atomically: a failed write leaves no partial
// file behind.
package storage
