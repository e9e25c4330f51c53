package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citecheck/internal/bibliography"
	"github.com/matsen/citecheck/internal/logger"
	"github.com/matsen/citecheck/internal/pdf"
)

var (
	extractPages         string
	extractIndent        int
	extractStartHeadings []string
	extractEndHeadings   []string
)

func init() {
	extractCmd.Flags().StringVar(&extractPages, "pages", "", "Pages holding the references, START-END (default: auto-detect)")
	extractCmd.Flags().IntVar(&extractIndent, "indent", 0, "Minimum indentation of a continuation line (default from config)")
	addHeadingFlags(extractCmd, &extractStartHeadings, &extractEndHeadings)
	rootCmd.AddCommand(extractCmd)
}

// addHeadingFlags registers the flags that override the section headings
// used to auto-detect the references pages.
func addHeadingFlags(cmd *cobra.Command, start, end *[]string) {
	cmd.Flags().StringSliceVar(start, "start-heading", nil,
		`First-line prefix of the references page, repeatable (default "references")`)
	cmd.Flags().StringSliceVar(end, "end-heading", nil,
		`First-line prefix of the page after the references, repeatable (default "appendix")`)
}

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Print the reference entries found in a PDF",
	Long: `Locate the references section of a PDF and split it into entries
without looking anything up.

Use it to tune --pages and --indent before running check.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractResponse is the response for the extract command.
type ExtractResponse struct {
	Document     string   `json:"document"`
	Pages        string   `json:"pages"`
	AutoDetected bool     `json:"auto_detected"`
	Count        int      `json:"count"`
	References   []string `json:"references"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	settings := mustResolveSettings(cmd)
	if cmd.Flags().Changed("indent") {
		settings.ContinuationIndent = extractIndent
	}
	mustValidateSettings(settings)

	log, closeLog := newLogger()
	defer closeLog()

	resp := mustExtract(args[0], extractOptions{
		Pages:         extractPages,
		Indent:        settings.ContinuationIndent,
		StartHeadings: extractStartHeadings,
		EndHeadings:   extractEndHeadings,
	}, log)

	if humanOutput {
		outputHuman("%s: pages %s, %d references\n\n", resp.Document, resp.Pages, resp.Count)
		for i, ref := range resp.References {
			outputHuman("%3d. %s\n", i+1, wrapText(ref, TextWrapWidth, "     "))
		}
		return nil
	}
	return outputJSON(resp)
}

// extractOptions are the command-line inputs of reference extraction.
type extractOptions struct {
	Pages         string
	Indent        int
	StartHeadings []string
	EndHeadings   []string
}

// mustExtract opens the PDF, finds the references pages (or uses opts.Pages)
// and segments them into entries. Exits on error.
func mustExtract(path string, opts extractOptions, log logger.Logger) ExtractResponse {
	doc, err := pdf.Open(path)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	defer doc.Close()

	locator := newLocator(opts.StartHeadings, opts.EndHeadings)
	pages, auto, err := resolvePages(doc, opts.Pages, locator)
	if err != nil {
		if errors.Is(err, bibliography.ErrReferencesNotFound) {
			exitWithError(ExitDataError, "%v in %s\n\nPass the pages explicitly with --pages START-END, or set --start-heading.", err, path)
		}
		exitWithError(ExitError, "%v", err)
	}
	if auto {
		log.Info("found references section", logger.String("pages", pages.String()))
	}

	seg := bibliography.NewSegmenter(
		bibliography.WithContinuationIndent(opts.Indent),
		bibliography.WithLogger(log),
	)
	refs := seg.Segment(doc, pages)
	log.Debug("segmented references", logger.Int("count", len(refs)))

	return ExtractResponse{
		Document:     path,
		Pages:        pages.String(),
		AutoDetected: auto,
		Count:        len(refs),
		References:   refs,
	}
}

// newLocator builds a Locator, replacing the default headings with the
// non-empty lists given.
func newLocator(start, end []string) *bibliography.Locator {
	var opts []bibliography.LocatorOption
	if len(start) > 0 {
		opts = append(opts, bibliography.WithStartHeadings(start...))
	}
	if len(end) > 0 {
		opts = append(opts, bibliography.WithEndHeadings(end...))
	}
	return bibliography.NewLocator(opts...)
}

// resolvePages parses an explicit range or locates the references section
// with locator. auto reports whether the range was detected.
func resolvePages(doc bibliography.Pages, pagesFlag string, locator *bibliography.Locator) (pages bibliography.PageRange, auto bool, err error) {
	if pagesFlag != "" {
		pages, err = bibliography.ParsePageRange(pagesFlag)
		if err != nil {
			return nil, false, fmt.Errorf("invalid --pages: %w", err)
		}
		if err := pages.Validate(doc.NumPages()); err != nil {
			return nil, false, fmt.Errorf("invalid --pages: %w", err)
		}
		return pages, false, nil
	}

	pages, err = locator.Locate(doc)
	if err != nil {
		return nil, true, err
	}
	return pages, true, nil
}
