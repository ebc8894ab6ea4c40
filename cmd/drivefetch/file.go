package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ligustah/drivefetch/internal/downloader"
	"github.com/ligustah/drivefetch/internal/progress"
	"github.com/ligustah/drivefetch/internal/storage"
	"github.com/ligustah/drivefetch/pkg/partition"
)

func newFileCmd(a *app) *cobra.Command {
	var (
		output string
		parts  int
	)

	cmd := &cobra.Command{
		Use:   "file <file-id>",
		Short: "Download a single file",
		Long: `Download a single Drive file.

Files of 25 MiB or more are fetched in --parts concurrent byte ranges.
Without -o the file is written to the current directory under its Drive name.
If -o names an existing directory, or ends in a separator, the Drive name is
appended.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("parts") {
				if parts < 0 {
					return usageError{fmt.Errorf("--parts must not be negative")}
				}
				a.cfg.Parts = parts
			}
			return a.runFile(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path or bucket URL")
	cmd.Flags().IntVar(&parts, "parts", 0, "Partitions per file, 0 disables partitioning (default 12)")
	cmd.Flags().BoolVar(&a.flags.Progress, "progress", false, "Show download progress")

	return cmd
}

func (a *app) runFile(cmd *cobra.Command, id, output string) error {
	ctx, cancel := a.withTimeout(cmd.Context())
	defer cancel()

	dc, dl, store, err := a.services()
	if err != nil {
		return err
	}
	defer store.Close()

	file, err := dc.Metadata(ctx, id)
	if err != nil {
		return err
	}

	dest := fileDest(output, storage.SafeName(file.Name))
	if _, err := storage.Parse(dest); err != nil {
		return err
	}

	parts := a.cfg.Parts
	total := file.Size
	if downloader.SelectMode(file.Size, parts) == downloader.ModePartitioned {
		total = partition.ProgressMax(file.Size, parts, 1)
	}

	sink, stop := a.startProgress(file.Name, total, 1, parts)
	err = dl.Download(ctx, file, dest, sink, parts)
	stop()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stderr, "[drivefetch] Finished downloading %s (%s) to %s\n", file.Name, progress.FormatBytes(file.Size), dest)
	return nil
}

// fileDest resolves the -o value for a file named name. Directories and
// bucket prefixes get the name appended.
func fileDest(output, name string) string {
	if output == "" {
		return name
	}

	if strings.Contains(output, "://") {
		if _, key, ok := strings.Cut(output, "#"); ok && (key == "" || strings.HasSuffix(key, "/")) {
			return storage.Join(output, name)
		}
		return output
	}

	if strings.HasSuffix(output, string(filepath.Separator)) {
		return storage.Join(output, name)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return storage.Join(output, name)
	}
	return output
}
