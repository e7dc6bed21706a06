package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/application/usecase/download"
	"mavencrawler/shared/infrastructure/cache"
	infrastorage "mavencrawler/shared/infrastructure/storage"
)

var downloadCmd = &cobra.Command{
	Use:   "download <groupId> <artifactId> <repository> <version>",
	Short: "Download one version, or with --all every version of every metadata record",
	Args: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(4)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}

		a, err := newApp("Download")
		if err != nil {
			return err
		}
		defer a.Close()

		repos, err := a.repositories(ctx)
		if err != nil {
			return err
		}
		storage, err := infrastorage.CreateStorage(a.cfg, a.obs)
		if err != nil {
			return fmt.Errorf("creating storage: %w", err)
		}
		fetcher, err := a.fetcher()
		if err != nil {
			return err
		}

		inFlight, err := cache.Create(ctx, a.cfg, a.obs)
		if err != nil {
			return fmt.Errorf("connecting lock backend: %w", err)
		}
		var tracker ports.InFlightTracker
		if inFlight != nil {
			defer inFlight.Close()
			tracker = inFlight
		}

		executor, err := download.NewDownloadArtifact(fetcher, storage, repos.Completions(), tracker,
			a.cfg.Downloader.Timeout, a.obs)
		if err != nil {
			return err
		}

		if !all {
			job, err := parseJob(args)
			if err != nil {
				return err
			}
			res, err := executor.Execute(ctx, job)
			if err != nil {
				return err
			}
			if res.AlreadyStored {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already stored at %s\n", job, res.StoragePath)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s stored at %s (%d bytes)\n", job, res.StoragePath, res.Bytes)
			}
			return nil
		}

		batch, err := download.NewDownloadAll(repos.Metadata(), executor,
			a.cfg.Enqueuer.PageSize, a.cfg.Downloader.Concurrency, a.obs)
		if err != nil {
			return err
		}
		res, err := batch.Run(ctx)
		if err != nil {
			return err
		}

		return renderCounts(cmd.OutOrStdout(), []countRow{
			{"jobs", res.Jobs},
			{"downloaded", res.Downloaded},
			{"already stored", res.AlreadyStored},
			{"failed", res.Failed},
		})
	},
}

func init() {
	downloadCmd.Flags().Bool("all", false, "Download every version of every stored metadata record")
}
