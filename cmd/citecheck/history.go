package main

import (
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matsen/citecheck/internal/storage"
)

var (
	historyLimit     int
	historyFlagged   bool
	historyThreshold int
	historyDocument  string
	historySearch    string
	historyRun       string
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", DefaultHistoryLimit, "Maximum number of results")
	historyCmd.Flags().BoolVar(&historyFlagged, "flagged", false, "List evaluated references above the threshold, latest run per document")
	historyCmd.Flags().IntVar(&historyThreshold, "threshold", 0, "Threshold for --flagged (default from config)")
	historyCmd.Flags().StringVar(&historyDocument, "document", "", "Restrict to one document path")
	historyCmd.Flags().StringVar(&historySearch, "search", "", "Full-text search over stored references and citations")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the records of one run")
	historyCmd.MarkFlagsMutuallyExclusive("flagged", "search", "run")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query past check runs",
	Long: `Query the history of check runs.

Examples:
  citecheck history                         # Recent runs
  citecheck history --document thesis.pdf   # Runs for one document
  citecheck history --flagged --threshold 20
  citecheck history --search "neural"
  citecheck history --run <run-id>`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

// HistoryRunsResponse lists runs.
type HistoryRunsResponse struct {
	Runs  []storage.Run `json:"runs"`
	Count int           `json:"count"`
}

// HistoryRecordsResponse lists stored records.
type HistoryRecordsResponse struct {
	Run       *storage.Run           `json:"run,omitempty"`
	Query     string                 `json:"query,omitempty"`
	Threshold int                    `json:"threshold,omitempty"`
	Records   []storage.StoredRecord `json:"records"`
	Count     int                    `json:"count"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings := mustResolveSettings(cmd)
	if cmd.Flags().Changed("threshold") {
		settings.Threshold = historyThreshold
	}
	mustValidateSettings(settings)

	db := mustOpenHistory(settings)
	defer db.Close()

	switch {
	case historyRun != "":
		run, err := db.GetRun(historyRun)
		if err != nil {
			exitWithError(ExitError, "reading run: %v", err)
		}
		if run == nil {
			exitWithError(ExitDataError, "run not found: %s", historyRun)
		}
		records, err := db.RunRecords(run.ID)
		if err != nil {
			exitWithError(ExitError, "reading records: %v", err)
		}
		return outputRecords(HistoryRecordsResponse{Run: run, Records: records})

	case historyFlagged:
		records, err := db.Flagged(settings.Threshold, historyDocument, historyLimit)
		if err != nil {
			exitWithError(ExitError, "querying flagged records: %v", err)
		}
		return outputRecords(HistoryRecordsResponse{Threshold: settings.Threshold, Records: records})

	case historySearch != "":
		records, err := db.SearchRecords(historySearch, historyLimit)
		if err != nil {
			exitWithError(ExitError, "searching records: %v", err)
		}
		return outputRecords(HistoryRecordsResponse{Query: historySearch, Records: records})
	}

	runs, err := db.ListRuns(historyDocument, historyLimit)
	if err != nil {
		exitWithError(ExitError, "listing runs: %v", err)
	}
	if runs == nil {
		runs = []storage.Run{}
	}

	if humanOutput {
		if len(runs) == 0 {
			outputHuman("No runs recorded\n")
			return nil
		}
		for _, r := range runs {
			source := "checked"
			if r.FromCache {
				source = "cached"
			}
			outputHuman("%s  %s  %s  %s\n", formatTimestamp(r.StartedAt), shortID(r.ID), source, r.Document)
			outputHuman("    %d references: %d no year, %d not found, %d evaluated, %d above %d\n",
				r.Counts.Total, r.Counts.NoYear, r.Counts.NotFound, r.Counts.Evaluated, r.Counts.Flagged, r.Threshold)
		}
		return nil
	}
	return outputJSON(HistoryRunsResponse{Runs: runs, Count: len(runs)})
}

func outputRecords(resp HistoryRecordsResponse) error {
	if resp.Records == nil {
		resp.Records = []storage.StoredRecord{}
	}
	resp.Count = len(resp.Records)

	if humanOutput {
		records := resp.Records
		if resp.Run != nil {
			outputHuman("Run %s on %s (%s)\n\n", resp.Run.ID, resp.Run.Document, formatTimestamp(resp.Run.StartedAt))
			records = worstFirst(records)
		}
		if resp.Count == 0 {
			outputHuman("No matching records\n")
			return nil
		}
		printRecordsHuman(os.Stdout, records)
		return nil
	}
	return outputJSON(resp)
}

// worstFirst returns a copy of records ordered by descending rank: not found,
// then no year, then evaluated by distance. Ties keep document order.
func worstFirst(records []storage.StoredRecord) []storage.StoredRecord {
	sorted := append([]storage.StoredRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank() > sorted[j].Rank()
	})
	return sorted
}

// shortID is the run ID prefix shown in human listings.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
