package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"mavencrawler/shared/application/usecase/crawl"
	"mavencrawler/shared/domain/entity"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List known repositories and when they were last checked",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp("ListRepositories")
		if err != nil {
			return err
		}
		defer a.Close()

		repos, err := a.repositories(ctx)
		if err != nil {
			return err
		}
		list, err := repos.RepositoryStates().List(ctx)
		if err != nil {
			return err
		}

		return renderRepositories(cmd.OutOrStdout(), list, time.Now().UTC(), a.cfg.Crawler.MinRecheck)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many records each store holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		repos, err := a.repositories(ctx)
		if err != nil {
			return err
		}

		metadata, err := repos.Metadata().Count(ctx)
		if err != nil {
			return err
		}
		completions, err := repos.Completions().Count(ctx)
		if err != nil {
			return err
		}
		archetypes, err := repos.Archetypes().ListAll(ctx)
		if err != nil {
			return err
		}
		states, err := repos.RepositoryStates().List(ctx)
		if err != nil {
			return err
		}

		return renderCounts(cmd.OutOrStdout(), []countRow{
			{"repositories", len(states)},
			{"archetypes", len(archetypes)},
			{"metadata records", int(metadata)},
			{"downloaded versions", int(completions)},
		})
	},
}

type countRow struct {
	label string
	value int
}

func renderCounts(w io.Writer, rows []countRow) error {
	table := tablewriter.NewTable(w)
	table.Header([]string{"Item", "Count"})
	for _, r := range rows {
		if err := table.Append([]string{r.label, strconv.Itoa(r.value)}); err != nil {
			return fmt.Errorf("an error occurred while appending to the table: %w", err)
		}
	}
	return table.Render()
}

func renderCatalogResults(w io.Writer, results []crawl.CatalogResult) error {
	table := tablewriter.NewTable(w)
	table.Header([]string{"Repository", "Archetypes", "Stored", "Failed", "Skipped"})
	for _, r := range results {
		row := []string{
			r.Root,
			strconv.Itoa(r.Archetypes),
			strconv.Itoa(r.Upserted),
			strconv.Itoa(r.Failed),
			r.SkipReason,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("an error occurred while appending to the table: %w", err)
		}
	}
	return table.Render()
}

func renderRepositories(w io.Writer, list []*entity.Repository, now time.Time, minRecheck time.Duration) error {
	table := tablewriter.NewTable(w)
	table.Header([]string{"Repository", "Last checked", "Last updated", "Fresh"})
	for _, r := range list {
		fresh := "no"
		if r.IsFresh(now, minRecheck) {
			fresh = "yes"
		}
		row := []string{r.URL, formatTime(r.LastCheckedAt), formatTime(r.LastUpdatedAt), fresh}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("an error occurred while appending to the table: %w", err)
		}
	}
	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
