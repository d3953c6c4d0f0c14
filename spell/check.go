// Package spell flags likely spelling and style errors in translated
// catalog entries by asking an external correction service.
//
// For every reviewed translation the Checker strips inline markup, looks the
// text up in a persistent cache (asking the rate-limited Fetcher on a miss),
// pulls the suggestions out of the service's HTML answer and keeps only
// those that look like genuine corrections.
package spell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flowdas/pdk/pofile"
	"go.uber.org/zap"
)

// ComputeFunc produces the service response for a sanitized text.
type ComputeFunc func(ctx context.Context, text string) (string, error)

// Cache stores service responses by sanitized text.
type Cache interface {
	Get(ctx context.Context, input string, compute func(context.Context, string) (string, error)) (string, error)
}

// Checker runs the suggestion pipeline over catalogs.
type Checker struct {
	Cache  Cache
	Fetch  ComputeFunc
	Logger *zap.Logger
}

// Summary counts what a run did.
type Summary struct {
	// Checked is the number of texts sent through the pipeline.
	Checked int
	// Flagged is the number of texts that produced a report block.
	Flagged int
	// Suggestions is the number of report lines written.
	Suggestions int
	// Failed is the number of texts skipped after a network error.
	Failed int
}

// Check checks the catalog at catalogPath and writes the report to
// reportPath, replacing any previous report. The report is flushed after
// every block, so an aborted run leaves the blocks written so far.
func (c *Checker) Check(ctx context.Context, catalogPath, reportPath string) (Summary, error) {
	catalog, err := pofile.ParseFile(catalogPath)
	if err != nil {
		return Summary{}, fmt.Errorf("reading catalog: %w", err)
	}

	out, err := os.Create(reportPath)
	if err != nil {
		return Summary{}, fmt.Errorf("creating report: %w", err)
	}
	sum, err := c.Run(ctx, filepath.Base(catalogPath), catalog, out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("closing report: %w", cerr)
	}
	return sum, err
}

// Run checks the entries of catalog in order and writes report blocks to w.
// name is the catalog name shown in block headers.
func (c *Checker) Run(ctx context.Context, name string, catalog *pofile.File, w io.Writer) (Summary, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bw := bufio.NewWriter(w)

	var sum Summary
	for _, e := range catalog.Entries {
		if e.MsgID == "" || e.Obsolete || e.IsFuzzy() {
			continue
		}
		for _, translation := range e.Translations() {
			text := Sanitize(translation)
			sum.Checked++

			suggestions, err := c.suggest(ctx, text)
			if err != nil {
				if KindOf(err) == KindNetwork {
					sum.Failed++
					logger.Warn("spell check request failed",
						zap.String("text", text),
						zap.Int("line", e.Line),
						zap.Error(err))
					continue
				}
				return sum, fmt.Errorf("%s:%d: %w", name, e.Line, err)
			}
			if len(suggestions) == 0 {
				continue
			}

			fmt.Fprintf(bw, "# %s:%d\n", name, e.Line)
			for _, s := range suggestions {
				fmt.Fprintf(bw, "%s -> %s: %s\n", s.Input, s.Output, s.Help)
			}
			bw.WriteString("\n")
			if err := bw.Flush(); err != nil {
				return sum, fmt.Errorf("writing report: %w", err)
			}
			sum.Flagged++
			sum.Suggestions += len(suggestions)
			logger.Debug("flagged entry", zap.Int("line", e.Line), zap.Int("suggestions", len(suggestions)))
		}
	}
	return sum, nil
}

func (c *Checker) suggest(ctx context.Context, text string) ([]Suggestion, error) {
	page, err := c.Cache.Get(ctx, text, c.Fetch)
	if err != nil {
		return nil, err
	}
	return Extract(page)
}
