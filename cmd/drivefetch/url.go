package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	"github.com/spf13/cobra"

	"github.com/ligustah/drivefetch/internal/downloader"
	dfhttp "github.com/ligustah/drivefetch/internal/http"
	"github.com/ligustah/drivefetch/internal/progress"
	"github.com/ligustah/drivefetch/internal/storage"
	"github.com/ligustah/drivefetch/pkg/partition"
)

// noToken sends requests without authorization.
type noToken struct{}

func (noToken) Token() (string, error) { return "", nil }

func newURLCmd(a *app) *cobra.Command {
	var (
		output string
		parts  int
	)

	cmd := &cobra.Command{
		Use:   "url <http-url>",
		Short: "Download a plain HTTP URL",
		Long: `Download any HTTP URL the same way as a Drive file.

The size is taken from a HEAD request. Servers that do not advertise
Accept-Ranges: bytes are fetched with a single request. The Drive token is
never sent.`,
		Args:        exactArgs(1),
		Annotations: map[string]string{annotationAnonymous: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("parts") {
				if parts < 0 {
					return usageError{fmt.Errorf("--parts must not be negative")}
				}
				a.cfg.Parts = parts
			}
			return a.runURL(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path or bucket URL")
	cmd.Flags().IntVar(&parts, "parts", 0, "Partitions, 0 disables partitioning (default 12)")
	cmd.Flags().BoolVar(&a.flags.Progress, "progress", false, "Show download progress")

	return cmd
}

func (a *app) runURL(cmd *cobra.Command, rawURL, output string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return usageError{fmt.Errorf("not an http(s) URL: %q", rawURL)}
	}

	ctx, cancel := a.withTimeout(cmd.Context())
	defer cancel()

	client := a.httpClient()
	info, err := client.Head(ctx, rawURL, "")
	if err != nil {
		return err
	}
	if info.Size < 0 {
		return fmt.Errorf("%s did not report a content length", rawURL)
	}
	a.log.Debug().
		Str("url", rawURL).
		Int64("size", info.Size).
		Str("etag", info.ETag).
		Str("content_type", info.ContentType).
		Time("last_modified", info.LastModified).
		Bool("accepts_ranges", info.AcceptsRanges).
		Msg("remote file")

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "download"
	}
	file, err := downloader.NewRemoteFile(rawURL, name, info.Size)
	if err != nil {
		return err
	}

	parts := a.cfg.Parts
	if !info.AcceptsRanges {
		a.log.Warn().Str("url", rawURL).Msg("server does not accept ranges, fetching whole file")
		parts = 0
	}

	dest := fileDest(output, storage.SafeName(file.Name))
	if _, err := storage.Parse(dest); err != nil {
		return err
	}

	store := storage.NewStore()
	defer store.Close()
	dl := downloader.New(client, noToken{}, store, downloader.Options{Logger: &a.log})

	err = a.downloadURL(ctx, dl, file, dest, parts)
	if errors.Is(err, dfhttp.ErrRangeNotSupported) {
		a.log.Warn().Str("url", rawURL).Msg("server ignored range requests, fetching whole file")
		err = a.downloadURL(ctx, dl, file, dest, 0)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stderr, "[drivefetch] Finished downloading %s (%s) to %s\n", file.Name, progress.FormatBytes(file.Size), dest)
	return nil
}

func (a *app) downloadURL(ctx context.Context, dl *downloader.Downloader, file downloader.RemoteFile, dest string, parts int) error {
	total := file.Size
	if downloader.SelectMode(file.Size, parts) == downloader.ModePartitioned {
		total = partition.ProgressMax(file.Size, parts, 1)
	}

	sink, stop := a.startProgress(file.Name, total, 1, parts)
	defer stop()
	return dl.Download(ctx, file, dest, sink, parts)
}
