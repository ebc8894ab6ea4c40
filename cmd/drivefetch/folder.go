package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ligustah/drivefetch/internal/downloader"
	"github.com/ligustah/drivefetch/internal/drive"
	"github.com/ligustah/drivefetch/internal/progress"
)

func newFolderCmd(a *app) *cobra.Command {
	var (
		output string
		parts  int
	)

	cmd := &cobra.Command{
		Use:   "folder <folder-url-or-id>",
		Short: "Download every file in a folder",
		Long: `Download every file directly inside a Drive folder, concurrently.

--parts is the total number of fetches to keep in flight. It is spread across
the files, so each file gets ceil(parts / files) partitions. A failed file does
not stop the others; the command exits with a non-zero status if any failed.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("parts") {
				if parts < 1 {
					return usageError{fmt.Errorf("--parts must be positive")}
				}
				a.cfg.TargetParts = parts
			}
			return a.runFolder(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "Destination directory or bucket URL prefix")
	cmd.Flags().IntVar(&parts, "parts", 0, "Total concurrent fetches across the folder (default 12)")
	cmd.Flags().BoolVar(&a.flags.Progress, "progress", false, "Show download progress")

	return cmd
}

func (a *app) runFolder(cmd *cobra.Command, ref, output string) error {
	folderID, err := drive.FolderIDFromURL(ref)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(cmd.Context())
	defer cancel()

	dc, dl, store, err := a.services()
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := dc.ListFolder(ctx, folderID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(a.stderr, "[drivefetch] Folder %s has no files\n", folderID)
		return nil
	}

	plan := downloader.PlanFolder(files, a.cfg.TargetParts)
	label := fmt.Sprintf("%d files (%s)", len(plan.Files), progress.FormatBytes(plan.TotalSize))

	var received progress.Counter
	display, stop := a.startProgress(label, plan.ProgressMax, len(plan.Files), plan.Parts)
	results := dl.DownloadFolder(ctx, plan.Files, output, progress.Tee(&received, display), a.cfg.TargetParts)
	stop()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(a.stderr, "[drivefetch] Failed %s: %v\n", r.File.Name, r.Err)
			continue
		}
		fmt.Fprintf(a.stderr, "[drivefetch] Finished downloading %s to %s\n", r.File.Name, r.Dest)
	}

	fmt.Fprintf(a.stderr, "[drivefetch] Received %s for %d of %d files\n",
		progress.FormatBytes(received.Load()), len(results)-failed, len(results))

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errPartial, failed, len(results))
	}
	return nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <folder-url-or-id>",
		Short: "List the files in a folder",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID, err := drive.FolderIDFromURL(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			dc, _, store, err := a.services()
			if err != nil {
				return err
			}
			defer store.Close()

			files, err := dc.ListFolder(ctx, folderID)
			if err != nil {
				return err
			}

			out := a.stdout
			fmt.Fprintf(out, "%-40s %12s  %-11s %s\n", "NAME", "SIZE", "MODE", "ID")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, f := range files {
				mode := downloader.SelectMode(f.Size, a.cfg.Parts)
				fmt.Fprintf(out, "%-40s %12s  %-11s %s\n", f.Name, progress.FormatBytes(f.Size), mode, f.ID)
			}
			return nil
		},
	}
}
