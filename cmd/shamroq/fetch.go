package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/shamroq/pkg/volume"
)

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the dataset's XML volumes from its SOURCE_URL",
		Long: `Download every volume listed in the dataset's VOLUMES from SOURCE_URL
into HOME_BASE. Volumes already on disk are skipped, requests to one host are
rate limited, and transient failures are retried with exponential backoff.

Example:
  shamroq fetch --dataset FAR
  shamroq fetch --dataset FAR --progress`,
		RunE: func(cmd *cobra.Command, args []string) error {
			showProgress, _ := cmd.Flags().GetBool("progress")

			application, err := setupApp(cmd, false)
			if err != nil {
				return err
			}
			defer application.Close()

			dataset, err := application.config.Dataset(application.dataset)
			if err != nil {
				return err
			}

			downloadConfig := volume.ConfigFromSettings(application.config.Settings)
			out := cmd.OutOrStdout()
			if showProgress {
				downloadConfig.Progress = func(name string, bytesDownloaded int64, totalBytes int64) {
					printProgress(out, name, bytesDownloaded, totalBytes)
				}
			}

			downloader := volume.NewDownloader(downloadConfig, application.logger)
			results, err := downloader.FetchDataset(cmd.Context(), dataset)
			if showProgress {
				fmt.Fprintln(out)
			}
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}

			fmt.Fprint(out, volume.FormatResults(results))
			for _, result := range results {
				if result.Err != nil {
					return errors.New("one or more volumes failed to download")
				}
			}
			return nil
		},
	}

	cmd.Flags().Bool("progress", false, "Show a progress bar for each download")
	return cmd
}

func printProgress(out io.Writer, name string, bytesDownloaded int64, totalBytes int64) {
	if totalBytes > 0 {
		percentage := float64(bytesDownloaded) / float64(totalBytes) * 100
		barLength := int(percentage / 2)
		if barLength > 50 {
			barLength = 50
		}
		fmt.Fprintf(out, "\r  %s [%-50s] %.1f%% (%s / %s)",
			name,
			strings.Repeat("=", barLength)+strings.Repeat(" ", 50-barLength),
			percentage,
			volume.FormatBytes(bytesDownloaded),
			volume.FormatBytes(totalBytes))
		return
	}
	fmt.Fprintf(out, "\r  %s downloaded: %s", name, volume.FormatBytes(bytesDownloaded))
}
