// pdk: translation helpers for Korean documentation kept in gettext catalogs.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flowdas/pdk/config"
	"github.com/flowdas/pdk/coverage"
	"github.com/flowdas/pdk/i18n"
	"github.com/flowdas/pdk/logging"
	"github.com/flowdas/pdk/pofile"
	"github.com/flowdas/pdk/spell"
	"github.com/flowdas/pdk/spellcache"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	homeFlag   string
	configFlag string
	verbose    bool
)

// loadConfig resolves the home directory and reads pdk.yaml.
func loadConfig() (*config.Config, error) {
	home, err := config.Home(homeFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(home, configFlag)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdk",
		Short: i18n.T("Translation helpers for Korean documentation"),
		Long: i18n.T(`pdk: translation helpers for Korean documentation kept in PO catalogs.

Commands:
  spell     Check translated strings with a Korean spell check service
  index     Measure translation coverage of a catalog tree
  format    Rewrite a PO file in canonical form
  cache     Show the spell check cache
  config    Create or show pdk.yaml`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&homeFlag, "home", "", i18n.T("pdk home directory (default $PDK_HOME or ~/.local/share/pdk)"))
	root.PersistentFlags().StringVar(&configFlag, "config", "", i18n.T("Configuration file (default <home>/pdk.yaml)"))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("Enable debug logging"))

	root.AddCommand(
		newSpellCmd(),
		newIndexCmd(),
		newFormatCmd(),
		newCacheCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  i18n.T(`Display version, commit hash, and build date.`),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pdk version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// spell
// ---------------------------------------------------------------------------

func newSpellCmd() *cobra.Command {
	var report string

	cmd := &cobra.Command{
		Use:   "spell <po-file>",
		Short: i18n.T("Check translated strings for spelling mistakes"),
		Long: i18n.T(`Send every translated, non-fuzzy string of a PO file to the configured
spell check service and write the suggestions to a report.

Responses are cached in the pdk home, so only new or changed strings
reach the service. Requests are spaced by spell.interval.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if report == "" {
				report = cfg.ReportPath()
			}
			return runSpell(cfg, args[0], report)
		},
	}

	cmd.Flags().StringVarP(&report, "report", "o", "", i18n.T("Report file (default spell.report in the pdk home)"))
	return cmd
}

func runSpell(cfg *config.Config, poPath, report string) error {
	endpoint, err := cfg.Spell.Endpoint()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, stopping..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	fetcher, err := spell.NewFetcher(spell.FetcherOptions{
		Endpoint: endpoint,
		Field:    cfg.Spell.Field,
		Interval: cfg.Spell.Interval,
		Timeout:  cfg.Spell.Timeout,
		Proxy:    cfg.Spell.Proxy,
	})
	if err != nil {
		return err
	}

	store, err := spellcache.Open(ctx, cfg.CachePath())
	if err != nil {
		return err
	}
	defer store.Close()

	checker := &spell.Checker{
		Cache:  store,
		Fetch:  fetcher.Fetch,
		Logger: logger.Named("spell"),
	}

	logInfo(i18n.T("Checking %s"), poPath)
	sum, err := checker.Check(ctx, poPath, report)
	if err != nil {
		return err
	}

	logger.Debug("spell check finished",
		zap.Int("checked", sum.Checked),
		zap.Int("flagged", sum.Flagged),
		zap.Int("failed", sum.Failed))

	if sum.Failed > 0 {
		logWarning(i18n.N("%d request failed; run again to retry it", "%d requests failed; run again to retry them", sum.Failed), sum.Failed)
	}
	if sum.Flagged == 0 {
		logSuccess(i18n.T("Checked %d strings, no suggestions"), sum.Checked)
	} else {
		logSuccess(i18n.T("Checked %d strings, %d flagged with %d suggestions"), sum.Checked, sum.Flagged, sum.Suggestions)
	}
	logInfo(i18n.T("Report: %s"), report)
	return nil
}

// ---------------------------------------------------------------------------
// index
// ---------------------------------------------------------------------------

func newIndexCmd() *cobra.Command {
	var (
		ignores   []string
		indexFile string
	)

	cmd := &cobra.Command{
		Use:   "index [root]",
		Short: i18n.T("Measure translation coverage"),
		Long: i18n.T(`Scan every .po file under root (default ".") and update the coverage index.

Only catalogs whose content changed since the last scan are parsed again.
Coverage is measured in characters of the original text.`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			if indexFile == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				indexFile = cfg.IndexPath()
			}
			return runIndex(root, indexFile, ignores)
		},
	}

	cmd.Flags().StringArrayVar(&ignores, "ignore", nil, i18n.T("Catalog to skip, relative to root (repeatable)"))
	cmd.Flags().StringVar(&indexFile, "index", "", i18n.T("Index file (default index.file in the pdk home)"))
	return cmd
}

func runIndex(root, indexFile string, ignores []string) error {
	idx, err := coverage.Load(indexFile)
	if err != nil {
		return err
	}
	res, err := idx.Scan(root, ignores)
	if err != nil {
		return err
	}

	for _, name := range res.Changed {
		fmt.Fprintf(os.Stderr, "  %s%s%s\n", colorYellow, name, colorReset)
	}
	for _, name := range res.Removed {
		fmt.Fprintf(os.Stderr, "  %s- %s%s\n", colorRed, name, colorReset)
	}

	if err := os.MkdirAll(filepath.Dir(indexFile), 0755); err != nil {
		return err
	}
	if err := idx.Save(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", progressBar(int(res.Coverage()*100), 30), res)
	return nil
}

// progressBar renders a colored bar followed by the percentage.
func progressBar(percent, width int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 90:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s%s %3d%%", color, bar, colorReset, percent)
}

// ---------------------------------------------------------------------------
// format
// ---------------------------------------------------------------------------

func newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <po-file>",
		Short: i18n.T("Rewrite a PO file in canonical form"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, err := formatCatalog(args[0])
			if err != nil {
				return err
			}
			if changed {
				logSuccess(i18n.T("Formatted %s"), args[0])
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("already formatted"))
			}
			return nil
		},
	}
}

// formatCatalog rewrites path with pofile.Write and reports whether the
// content changed. The file is left untouched when it is already canonical.
func formatCatalog(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	catalog, err := pofile.Parse(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := catalog.Write(&buf); err != nil {
		return false, err
	}
	if bytes.Equal(data, buf.Bytes()) {
		return false, nil
	}
	return true, os.WriteFile(path, buf.Bytes(), 0644)
}

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func newCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: i18n.T("Show the spell check cache location and size"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := spellcache.Open(ctx, cfg.CachePath())
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Len(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", store.Path())
			fmt.Fprintf(cmd.OutOrStdout(), i18n.N("%d cached response\n", "%d cached responses\n", n), n)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: i18n.T("Create or show pdk.yaml"),
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("Write a default pdk.yaml"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFlag
			if path == "" {
				home, err := config.Home(homeFlag)
				if err != nil {
					return err
				}
				path = filepath.Join(home, config.FileName)
			}
			if err := config.WriteDefault(path); err != nil {
				if errors.Is(err, fs.ErrExist) {
					logWarning(i18n.T("%s already exists, not overwriting"), path)
					return nil
				}
				return err
			}
			logSuccess(i18n.T("Created %s"), path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: i18n.T("Print the effective configuration"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# home: %s\n", cfg.HomeDir)
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
