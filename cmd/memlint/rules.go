package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"memlint/internal/own"
	"memlint/internal/project"
	"memlint/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the checking rules and their effective configuration",
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	rulesCmd.Flags().Bool("no-config", false, "skip memlint.toml discovery")
}

type rulePayload struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Enabled  bool   `json:"enabled"`
	Doc      string `json:"doc"`
}

func runRules(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	noConfig, err := cmd.Flags().GetBool("no-config")
	if err != nil {
		return fmt.Errorf("failed to get no-config flag: %w", err)
	}

	registry := rules.Default()
	if !noConfig {
		manifest, found, err := project.Discover(".")
		if err != nil {
			return err
		}
		if found {
			symbols := own.DefaultSymbols()
			if err := manifest.Config.Apply(registry, &symbols); err != nil {
				return fmt.Errorf("%s: %w", manifest.Path, err)
			}
		}
	}

	payload := make([]rulePayload, 0, len(registry.All()))
	for _, rule := range registry.All() {
		payload = append(payload, rulePayload{
			Name:     rule.Name,
			Code:     rule.Code.String(),
			Severity: registry.SeverityOf(rule).String(),
			Enabled:  registry.Enabled(rule.Code),
			Doc:      rule.Doc,
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)

	case "pretty":
		nameStyle := color.New(color.Bold)
		offStyle := color.New(color.FgRed)
		for _, p := range payload {
			state := ""
			if !p.Enabled {
				state = offStyle.Sprint("  [disabled]")
			}
			name := p.Name
			if useColor(cmd, os.Stdout) {
				name = nameStyle.Sprint(p.Name)
			}
			fmt.Fprintf(os.Stdout, "%-32s %-32s %-8s%s\n    %s\n", name, p.Code, p.Severity, state, p.Doc)
		}
		return nil

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
