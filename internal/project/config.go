package project

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"memlint/internal/diag"
	"memlint/internal/own"
	"memlint/internal/rules"
	"memlint/internal/token"
)

// Config is the decoded memlint.toml.
type Config struct {
	Rules       RulesConfig       `toml:"rules"`
	Annotations AnnotationsConfig `toml:"annotations"`
	Symbols     SymbolsConfig     `toml:"symbols"`
}

// RulesConfig tunes the rule registry.
type RulesConfig struct {
	// Disabled lists rule names to silence, e.g. "leak".
	Disabled []string `toml:"disabled"`
	// Severity overrides per rule name: "info", "warning" or "error".
	Severity map[string]string `toml:"severity"`
}

// AnnotationsConfig declares extra annotation spellings, mapping an
// alias identifier to a canonical annotation keyword.
type AnnotationsConfig struct {
	Aliases map[string]string `toml:"aliases"`
}

// SymbolsConfig extends the allocator/releaser/retainer tables.
type SymbolsConfig struct {
	Allocators []string `toml:"allocators"`
	Releasers  []string `toml:"releasers"`
	Retainers  []string `toml:"retainers"`
}

// Manifest is a loaded config together with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Load decodes one memlint.toml. Unknown keys are an error so a typo
// never silently disables a rule.
func Load(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Discover walks up from startDir, loading the nearest memlint.toml.
// ok is false when no manifest exists, which is not an error.
func Discover(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

// Apply pushes the config into the rule registry, the symbol tables
// and the annotation keyword table. Must run before any lexing.
func (c Config) Apply(reg *rules.Registry, syms *own.Symbols) error {
	for _, name := range c.Rules.Disabled {
		if err := reg.Disable(name); err != nil {
			return fmt.Errorf("[rules].disabled: %w", err)
		}
	}

	overrides := make([]string, 0, len(c.Rules.Severity))
	for name := range c.Rules.Severity {
		overrides = append(overrides, name)
	}
	sort.Strings(overrides)
	for _, name := range overrides {
		sev, err := parseSeverity(c.Rules.Severity[name])
		if err != nil {
			return fmt.Errorf("[rules].severity.%s: %w", name, err)
		}
		if err := reg.Override(name, sev); err != nil {
			return fmt.Errorf("[rules].severity: %w", err)
		}
	}

	aliases := make([]string, 0, len(c.Annotations.Aliases))
	for spelling := range c.Annotations.Aliases {
		aliases = append(aliases, spelling)
	}
	sort.Strings(aliases)
	for _, spelling := range aliases {
		canonical := c.Annotations.Aliases[spelling]
		kind, ok := token.LookupKeyword(canonical)
		if !ok || !kind.IsAnnotation() {
			return fmt.Errorf("[annotations].aliases.%s: %q is not an annotation keyword", spelling, canonical)
		}
		if !token.RegisterAlias(spelling, kind) {
			return fmt.Errorf("[annotations].aliases: invalid alias %q", spelling)
		}
	}

	if syms != nil {
		for _, name := range c.Symbols.Allocators {
			syms.Allocators[name] = true
		}
		for _, name := range c.Symbols.Releasers {
			syms.Releasers[name] = true
		}
		if len(c.Symbols.Retainers) > 0 && syms.Retainers == nil {
			syms.Retainers = make(map[string]bool, len(c.Symbols.Retainers))
		}
		for _, name := range c.Symbols.Retainers {
			syms.Retainers[name] = true
		}
	}
	return nil
}

func parseSeverity(s string) (diag.Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return diag.SevInfo, nil
	case "warning":
		return diag.SevWarning, nil
	case "error":
		return diag.SevError, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}
