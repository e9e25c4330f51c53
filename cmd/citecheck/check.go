package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/citecheck/internal/cache"
	"github.com/matsen/citecheck/internal/config"
	"github.com/matsen/citecheck/internal/logger"
	"github.com/matsen/citecheck/internal/lookup"
	"github.com/matsen/citecheck/internal/s2"
	"github.com/matsen/citecheck/internal/scholar"
	"github.com/matsen/citecheck/internal/storage"
	"github.com/matsen/citecheck/internal/verify"
)

var (
	checkPages         string
	checkThreshold     int
	checkChallengeWait time.Duration
	checkRenderTimeout time.Duration
	checkIndent        int
	checkNoScholar     bool
	checkNoCache       bool
	checkUserAgent     string
	checkStartHeadings []string
	checkEndHeadings   []string
)

func init() {
	checkCmd.Flags().StringVar(&checkPages, "pages", "", "Pages holding the references, START-END (default: auto-detect)")
	checkCmd.Flags().IntVar(&checkThreshold, "threshold", verify.DefaultThreshold, "Flag evaluated references whose distance exceeds this")
	checkCmd.Flags().DurationVar(&checkChallengeWait, "challenge-wait", scholar.DefaultChallengeWait, "How long to wait for a Google Scholar challenge to clear")
	checkCmd.Flags().DurationVar(&checkRenderTimeout, "render-timeout", scholar.DefaultRenderTimeout, "Timeout for a single Google Scholar page")
	checkCmd.Flags().IntVar(&checkIndent, "indent", 0, "Minimum indentation of a continuation line (default from config)")
	checkCmd.Flags().BoolVar(&checkNoScholar, "no-scholar", false, "Do not fall back to Google Scholar")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "Ignore cached results and overwrite them")
	checkCmd.Flags().StringVar(&checkUserAgent, "user-agent", "", "User-Agent for Google Scholar requests")
	addHeadingFlags(checkCmd, &checkStartHeadings, &checkEndHeadings)
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <pdf>",
	Short: "Verify every reference of a PDF",
	Long: `Verify every reference of a PDF.

Each entry is looked up in Semantic Scholar first and in Google Scholar
second. The canonical citation is compared with the entry and the distance
between them is reported. Entries without a year are never looked up.

Results are cached under the data directory; a later run on the same
document reuses them unless --no-cache is given.

Examples:
  citecheck check thesis.pdf --human
  citecheck check thesis.pdf --pages 41-47 --threshold 20
  citecheck check thesis.pdf --no-scholar`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

// CheckResponse is the response for the check command.
type CheckResponse struct {
	Document  string          `json:"document"`
	RunID     string          `json:"run_id,omitempty"`
	Pages     string          `json:"pages,omitempty"`
	FromCache bool            `json:"from_cache"`
	Threshold int             `json:"threshold"`
	Counts    storage.Counts  `json:"counts"`
	NoYear    []verify.Record `json:"no_year"`
	NotFound  []verify.Record `json:"not_found"`
	Evaluated []verify.Record `json:"evaluated"`
	Flagged   []verify.Record `json:"flagged"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	settings := mustResolveSettings(cmd)
	applyCheckFlags(cmd, &settings)
	mustValidateSettings(settings)

	log, closeLog := newLogger()
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pdfPath := args[0]
	cachePath := cacheFile(settings, pdfPath)

	var (
		records   []verify.Record
		pages     string
		fromCache bool
	)
	if !checkNoCache {
		records, fromCache = loadCached(cachePath, log)
	}

	if !fromCache {
		ext := mustExtract(pdfPath, extractOptions{
			Pages:         checkPages,
			Indent:        settings.ContinuationIndent,
			StartHeadings: checkStartHeadings,
			EndHeadings:   checkEndHeadings,
		}, log)
		pages = ext.Pages

		v, release := newVerifier(settings, log)
		var err error
		records, err = v.VerifyAll(ctx, ext.References, progressLogger(log, len(ext.References)))
		release()
		if err != nil {
			exitWithError(ExitError, "verification interrupted after %d of %d references: %v",
				len(records), len(ext.References), err)
		}

		if err := cache.Save(cachePath, records); err != nil {
			log.Warn("could not write results cache", logger.String("path", cachePath), logger.Err(err))
		}
	}

	resp := buildCheckResponse(pdfPath, pages, fromCache, verify.Classify(records, settings.Threshold))
	resp.RunID = recordRun(settings, resp, records, log)

	if humanOutput {
		printReportHuman(os.Stdout, resp)
		return nil
	}
	return outputJSON(resp)
}

// applyCheckFlags overrides settings with the flags given on the command line.
func applyCheckFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		s.Threshold = checkThreshold
	}
	if flags.Changed("challenge-wait") {
		s.ChallengeWait = checkChallengeWait
	}
	if flags.Changed("render-timeout") {
		s.RenderTimeout = checkRenderTimeout
	}
	if flags.Changed("indent") {
		s.ContinuationIndent = checkIndent
	}
	if flags.Changed("no-scholar") {
		s.DisableScholar = checkNoScholar
	}
	if flags.Changed("user-agent") {
		s.UserAgent = checkUserAgent
	}
}

// cacheFile is the results cache of pdfPath inside the settings' cache directory.
func cacheFile(s config.Settings, pdfPath string) string {
	return cache.Path(s.CachePath(), pdfPath)
}

// loadCached returns the cached records for a document, if usable.
func loadCached(path string, log logger.Logger) ([]verify.Record, bool) {
	records, err := cache.Load(path)
	switch {
	case err == nil:
		log.Info("using cached results", logger.String("path", path), logger.Int("records", len(records)))
		return records, true
	case errors.Is(err, cache.ErrNotCached):
		return nil, false
	default:
		log.Warn("ignoring unusable results cache", logger.String("path", path), logger.Err(err))
		return nil, false
	}
}

// newVerifier wires Semantic Scholar as the primary lookup and, unless
// disabled, a Google Scholar session as the fallback. release closes the
// session and must be called once verification is done.
func newVerifier(s config.Settings, log logger.Logger) (v *verify.Verifier, release func()) {
	client := s2.NewClient(s2.WithAPIKey(s.S2APIKey))
	log.Debug("lookup sources",
		logger.Bool("s2_api_key", s.HasS2APIKey()),
		logger.Bool("scholar_fallback", !s.DisableScholar),
		logger.Int("threshold", s.Threshold))
	primary := lookup.NewStructured(client, log)

	if s.DisableScholar {
		log.Info("Google Scholar fallback disabled")
		return verify.New(primary, nil, verify.WithLogger(log)), func() {}
	}

	session := scholar.NewSession(
		scholar.WithUserAgent(s.UserAgent),
		scholar.WithRenderTimeout(s.RenderTimeout),
		scholar.WithChallengeWait(s.ChallengeWait),
		scholar.WithLogger(log),
	)
	release = func() {
		if err := session.Close(); err != nil {
			log.Warn("closing Google Scholar session", logger.Err(err))
		}
	}
	return verify.New(primary, lookup.NewSearch(session, log), verify.WithLogger(log)), release
}

func progressLogger(log logger.Logger, total int) func(int, verify.Record) {
	return func(i int, r verify.Record) {
		log.Info("checked reference",
			logger.String("n", fmt.Sprintf("%d/%d", i+1, total)),
			logger.String("outcome", distanceLabel(r)),
			logger.String("source", r.Source.String()))
	}
}

// recordRun appends the run to the history database. Failures are logged;
// the report is still printed.
func recordRun(s config.Settings, resp CheckResponse, records []verify.Record, log logger.Logger) string {
	db := mustOpenHistory(s)
	defer db.Close()

	run, err := db.RecordRun(storage.Run{
		Document:  resp.Document,
		Pages:     resp.Pages,
		Threshold: resp.Threshold,
		FromCache: resp.FromCache,
	}, records)
	if err != nil {
		log.Warn("could not record run history", logger.Err(err))
		return ""
	}
	return run.ID
}

func buildCheckResponse(document, pages string, fromCache bool, rep verify.Report) CheckResponse {
	return CheckResponse{
		Document:  document,
		Pages:     pages,
		FromCache: fromCache,
		Threshold: rep.Threshold,
		Counts:    storage.CountsOf(rep),
		NoYear:    rep.NoYear,
		NotFound:  rep.NotFound,
		Evaluated: rep.Evaluated,
		Flagged:   rep.Flagged,
	}
}

// printReportHuman prints the references without a year, the references
// no source found, then the evaluated table worst first.
func printReportHuman(w io.Writer, resp CheckResponse) {
	fmt.Fprintf(w, "%s: %d references", resp.Document, resp.Counts.Total)
	if resp.FromCache {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)

	if len(resp.NoYear) > 0 {
		fmt.Fprintf(w, "\nNo year found (%d):\n", len(resp.NoYear))
		for _, r := range resp.NoYear {
			fmt.Fprintf(w, "  - %s\n", wrapText(r.StudentRef, TextWrapWidth, "    "))
		}
	}

	if len(resp.NotFound) > 0 {
		fmt.Fprintf(w, "\nNot found (%d):\n", len(resp.NotFound))
		for _, r := range resp.NotFound {
			fmt.Fprintf(w, "  - %s\n", wrapText(r.StudentRef, TextWrapWidth, "    "))
		}
	}

	if len(resp.Evaluated) > 0 {
		fmt.Fprintf(w, "\nEvaluated (%d, %d above threshold %d):\n",
			len(resp.Evaluated), len(resp.Flagged), resp.Threshold)
		fmt.Fprintf(w, "  %5s  %-16s  %s\n", "DIST", "SOURCE", "REFERENCE")
		for _, r := range resp.Evaluated {
			mark := " "
			if r.Exceeds(resp.Threshold) {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %5d  %-16s  %s\n", mark, r.Distance, r.Source, truncateString(r.StudentRef, RefMaxLen))
		}
	}
}
