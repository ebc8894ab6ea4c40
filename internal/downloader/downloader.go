package downloader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ligustah/drivefetch/internal/progress"
	"github.com/ligustah/drivefetch/internal/storage"
	"github.com/ligustah/drivefetch/pkg/partition"
)

const (
	// MinChunkSize is the read buffer size for incremental fetches.
	MinChunkSize = 1 << 18

	// PartitionThreshold is the smallest file size downloaded in partitions.
	PartitionThreshold = MinChunkSize * 100

	// DefaultParts is the default number of concurrent fetches per download.
	DefaultParts = 12
)

// ErrDownloadFailed is returned when a file could not be downloaded. The
// underlying transport, assembly or write error is wrapped alongside it.
var ErrDownloadFailed = errors.New("download failed")

// ErrInvalidSize is returned by NewRemoteFile for negative sizes.
var ErrInvalidSize = errors.New("downloader: file size must not be negative")

// RemoteFile identifies a downloadable resource. It is a value type; copies
// never change.
type RemoteFile struct {
	ID   string
	Name string
	Size int64
}

// NewRemoteFile returns a RemoteFile, validating its size.
func NewRemoteFile(id, name string, size int64) (RemoteFile, error) {
	if size < 0 {
		return RemoteFile{}, fmt.Errorf("%w: %s has size %d", ErrInvalidSize, name, size)
	}
	return RemoteFile{ID: id, Name: name, Size: size}, nil
}

// Mode is the download strategy for a file.
type Mode int

const (
	// ModeWhole fetches the file with a single unranged request.
	ModeWhole Mode = iota
	// ModePartitioned fetches byte ranges concurrently and reassembles them.
	ModePartitioned
)

func (m Mode) String() string {
	if m == ModePartitioned {
		return "partitioned"
	}
	return "whole"
}

// SelectMode picks the download strategy for a file of size bytes when
// numParts partitions are requested. Zero or negative numParts always selects
// ModeWhole.
func SelectMode(size int64, numParts int) Mode {
	if numParts > 0 && size >= PartitionThreshold {
		return ModePartitioned
	}
	return ModeWhole
}

// State is a step of a single file download.
type State int

const (
	StateIdle State = iota
	StatePlanning
	StateInFlight
	StateAssembling
	StateWritten
	StateFailed
)

var stateNames = [...]string{"idle", "planning", "in_flight", "assembling", "written", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateWritten || s == StateFailed
}

// Fetcher fetches a whole resource or one byte range of it.
type Fetcher interface {
	Fetch(ctx context.Context, url, token string, rng *partition.Partition, onChunk func(int64)) ([]byte, error)
}

// TokenSource supplies the bearer token for fetches.
type TokenSource interface {
	Token() (string, error)
}

// Writer stores a downloaded file at its destination.
type Writer interface {
	Write(ctx context.Context, dest string, data []byte) error
}

// Options configures the downloader.
type Options struct {
	// URLFor maps a file ID to its content URL. When nil, the ID itself is
	// used as the URL.
	URLFor func(id string) string

	// Logger is an optional logger.
	Logger *zerolog.Logger

	// OnState is called on every state transition of every download. It must
	// be safe for concurrent use when folders are downloaded.
	OnState func(file RemoteFile, state State)
}

// Downloader downloads remote files, splitting large ones into concurrently
// fetched partitions.
type Downloader struct {
	fetcher Fetcher
	tokens  TokenSource
	store   Writer
	opts    Options
	log     zerolog.Logger
}

// New creates a Downloader.
func New(fetcher Fetcher, tokens TokenSource, store Writer, opts Options) *Downloader {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if opts.URLFor == nil {
		opts.URLFor = func(id string) string { return id }
	}

	return &Downloader{
		fetcher: fetcher,
		tokens:  tokens,
		store:   store,
		opts:    opts,
		log:     log,
	}
}

// Download fetches file and writes it to dest.
//
// Files of at least PartitionThreshold bytes are split into numParts
// partitions fetched concurrently; smaller files, or numParts <= 0, use a
// single request. When sink is non-nil every received chunk is reported to it.
//
// Any failed partition fails the whole download and nothing is written. The
// returned error wraps ErrDownloadFailed.
func (d *Downloader) Download(ctx context.Context, file RemoteFile, dest string, sink progress.Sink, numParts int) error {
	log := d.log.With().Str("file", file.Name).Str("id", file.ID).Logger()

	d.setState(log, file, StateIdle)
	d.setState(log, file, StatePlanning)

	data, err := d.fetch(ctx, log, file, sink, numParts)
	if err != nil {
		d.setState(log, file, StateFailed)
		log.Error().Err(err).Msg("download failed")
		return fmt.Errorf("%w: %q: %w", ErrDownloadFailed, file.Name, err)
	}

	if err := d.store.Write(ctx, dest, data); err != nil {
		d.setState(log, file, StateFailed)
		log.Error().Err(err).Str("dest", dest).Msg("write failed")
		return fmt.Errorf("%w: %q: %w", ErrDownloadFailed, file.Name, err)
	}

	d.setState(log, file, StateWritten)
	log.Info().Str("dest", dest).Int64("bytes", int64(len(data))).Msg("finished downloading")
	return nil
}

// fetch runs the planning, in-flight and assembling steps and returns the
// file's bytes.
func (d *Downloader) fetch(ctx context.Context, log zerolog.Logger, file RemoteFile, sink progress.Sink, numParts int) ([]byte, error) {
	token, err := d.tokens.Token()
	if err != nil {
		return nil, err
	}

	var onChunk func(int64)
	if sink != nil {
		onChunk = sink.Add
	}

	url := d.opts.URLFor(file.ID)
	mode := SelectMode(file.Size, numParts)

	if mode == ModeWhole {
		log.Info().Int64("size", file.Size).Stringer("mode", mode).Msg("downloading")
		d.setState(log, file, StateInFlight)

		data, err := d.fetcher.Fetch(ctx, url, token, nil, onChunk)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) != file.Size {
			log.Warn().Int64("expected", file.Size).Int("received", len(data)).Msg("size differs from listing")
		}
		d.setState(log, file, StateAssembling)
		return data, nil
	}

	parts, err := partition.Plan(file.Size, numParts)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("size", file.Size).Stringer("mode", mode).Int("parts", len(parts)).Msg("downloading")

	d.setState(log, file, StateInFlight)
	bufs, err := d.fetchParts(ctx, log, url, token, parts, onChunk)
	if err != nil {
		return nil, err
	}

	d.setState(log, file, StateAssembling)
	return partition.Assemble(parts, bufs)
}

// fetchParts fetches every partition concurrently and waits for all of them.
// Buffers are returned indexed like parts.
func (d *Downloader) fetchParts(ctx context.Context, log zerolog.Logger, url, token string, parts []partition.Partition, onChunk func(int64)) ([][]byte, error) {
	bufs := make([][]byte, len(parts))
	errs := make([]error, len(parts))

	var wg sync.WaitGroup
	for i := range parts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := parts[i]
			log.Debug().Int("part", i).Int64("start", p.Start).Int64("end", p.End).Msg("fetching partition")

			bufs[i], errs[i] = d.fetcher.Fetch(ctx, url, token, &p, onChunk)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("partition %d %s: %w", i, p, errs[i])
			}
		}(i)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return bufs, nil
}

func (d *Downloader) setState(log zerolog.Logger, file RemoteFile, s State) {
	log.Debug().Stringer("state", s).Msg("download state")
	if d.opts.OnState != nil {
		d.opts.OnState(file, s)
	}
}

// Result is the outcome of one file in a folder download.
type Result struct {
	File RemoteFile
	Dest string
	Err  error
}

// FolderPlan describes how a folder download is split.
type FolderPlan struct {
	Files       []RemoteFile // sorted by name
	Parts       int          // partitions per file
	TotalSize   int64
	ProgressMax int64
}

// PlanFolder sorts files by name and spreads targetParts concurrent fetches
// across them.
func PlanFolder(files []RemoteFile, targetParts int) FolderPlan {
	sorted := append([]RemoteFile(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	plan := FolderPlan{
		Files: sorted,
		Parts: partition.PartsPerFile(targetParts, len(sorted)),
	}
	for _, f := range sorted {
		plan.TotalSize += f.Size
	}
	plan.ProgressMax = partition.ProgressMax(plan.TotalSize, plan.Parts, len(sorted))
	return plan
}

// DownloadFolder downloads every file concurrently into destDir, named after
// the remote file. Each file gets PartsPerFile(targetParts, len(files))
// partitions, and all of them report to the same sink. It waits for every file
// and returns one Result per file, in name order.
func (d *Downloader) DownloadFolder(ctx context.Context, files []RemoteFile, destDir string, sink progress.Sink, targetParts int) []Result {
	plan := PlanFolder(files, targetParts)
	results := make([]Result, len(plan.Files))

	d.log.Info().
		Int("files", len(plan.Files)).
		Int64("size", plan.TotalSize).
		Int("parts_per_file", plan.Parts).
		Msg("downloading folder")

	names := localNames(plan.Files)

	var g errgroup.Group
	for i, f := range plan.Files {
		dest := storage.Join(destDir, names[i])
		results[i] = Result{File: f, Dest: dest}
		g.Go(func() error {
			results[i].Err = d.Download(ctx, f, dest, sink, plan.Parts)
			return nil
		})
	}
	g.Wait()

	return results
}

// localNames returns a safe, distinct destination name per file. Drive allows
// several files with the same name in one folder; later ones get a -N suffix
// before the extension.
func localNames(files []RemoteFile) []string {
	names := make([]string, len(files))
	taken := make(map[string]bool, len(files))
	for i, f := range files {
		name := storage.SafeName(f.Name)
		if taken[name] {
			ext := path.Ext(name)
			base := strings.TrimSuffix(name, ext)
			for n := 1; ; n++ {
				candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
				if !taken[candidate] {
					name = candidate
					break
				}
			}
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
