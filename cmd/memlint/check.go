package main

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"memlint/internal/diag"
	"memlint/internal/diagfmt"
	"memlint/internal/driver"
	"memlint/internal/own"
	"memlint/internal/project"
	"memlint/internal/rules"
	"memlint/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.c|directory>...",
	Short: "Check annotated C sources for ownership violations",
	Long:  `Check parses memory_* ownership annotations, builds the ownership model and reports violations such as leaks, double frees and uses after free`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif|short)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	checkCmd.Flags().Bool("no-warnings", false, "drop warnings from the output")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	checkCmd.Flags().Bool("with-notes", false, "include finding notes in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("cache", false, "enable the persistent result cache")
	checkCmd.Flags().String("cache-dir", "", "override the cache directory")
	checkCmd.Flags().String("ui", "auto", "interactive progress (auto|on|off)")
	checkCmd.Flags().Bool("no-config", false, "skip memlint.toml discovery")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if noWarnings && warningsAsErrors {
		return fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	enableCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}
	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	noConfig, err := cmd.Flags().GetBool("no-config")
	if err != nil {
		return fmt.Errorf("failed to get no-config flag: %w", err)
	}
	maxFindings, err := cmd.Root().PersistentFlags().GetInt("max-findings")
	if err != nil {
		return fmt.Errorf("failed to get max-findings flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	registry := rules.Default()
	symbols := own.DefaultSymbols()

	var configDigest driver.Digest
	if !noConfig {
		manifest, found, err := project.Discover(configStartDir(args[0]))
		if err != nil {
			return err
		}
		if found {
			if err := manifest.Config.Apply(registry, &symbols); err != nil {
				return fmt.Errorf("%s: %w", manifest.Path, err)
			}
			configDigest = digestFile(manifest.Path)
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "using config %s\n", manifest.Path)
			}
		}
	}

	var cache *driver.DiskCache
	if enableCache {
		if cacheDir != "" {
			cache, err = driver.OpenDiskCacheAt(cacheDir)
		} else {
			cache, err = driver.OpenDiskCache("memlint")
		}
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
	}

	opts := driver.Options{
		MaxFindings:  maxFindings,
		Jobs:         jobs,
		Registry:     registry,
		Symbols:      symbols,
		Cache:        cache,
		ConfigDigest: configDigest,
		Timings:      showTimings,
	}

	var (
		fs      *source.FileSet
		results []driver.FileResult
	)
	if shouldUseTUI(mode) && format == "pretty" {
		fs, results, err = runCheckWithUI(cmd.Context(), args, opts)
	} else {
		fs, results, err = driver.CheckPaths(cmd.Context(), args, opts)
	}
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	merged := diag.NewBag(maxFindings * max(len(results), 1))
	for _, r := range results {
		merged.Merge(r.Bag)
	}
	applyWarningPolicy(merged, noWarnings, warningsAsErrors)
	merged.Sort()

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch format {
	case "pretty":
		diagfmt.Pretty(os.Stdout, merged, fs, diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stdout),
			PathMode:  pathMode,
			ShowNotes: withNotes,
		})
	case "short":
		if out := diag.FormatShort(merged, fs, withNotes); out != "" {
			fmt.Fprint(os.Stdout, out)
		}
	case "json":
		err = diagfmt.JSON(os.Stdout, merged, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
			IncludeEntities:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to format findings: %w", err)
		}
	case "sarif":
		err = diagfmt.Sarif(os.Stdout, merged, fs, diagfmt.SarifRunMeta{
			ToolName:       "memlint",
			ToolVersion:    "0.1.0",
			InvocationArgs: os.Args,
		}, registry)
		if err != nil {
			return fmt.Errorf("failed to format findings: %w", err)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if merged.HasErrors() {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return errFindings
	}
	return nil
}

// errFindings signals a non-zero exit without an extra error message;
// the findings themselves are the output.
var errFindings = fmt.Errorf("findings with error severity reported")

// configStartDir picks the directory the manifest search starts from.
func configStartDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

func digestFile(path string) driver.Digest {
	var out driver.Digest
	data, err := os.ReadFile(path) // #nosec G304 -- path was discovered by walking up from the user's input
	if err != nil {
		return out
	}
	return driver.Digest(sha256.Sum256(data))
}

// applyWarningPolicy rewrites the merged bag per the warning flags.
func applyWarningPolicy(bag *diag.Bag, noWarnings, warningsAsErrors bool) {
	if !noWarnings && !warningsAsErrors {
		return
	}
	kept := make([]diag.Finding, 0, bag.Len())
	for _, f := range bag.Items() {
		if f.Severity == diag.SevWarning {
			if noWarnings {
				continue
			}
			f.Severity = diag.SevError
		}
		kept = append(kept, f)
	}
	bag.Replace(kept)
}
