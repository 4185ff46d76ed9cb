package own

// Symbols is the table of well-known external functions the checker
// understands without a declaration. Projects extend it through
// configuration.
type Symbols struct {
	Allocators map[string]bool
	Releasers  map[string]bool
	Retainers  map[string]bool
}

// DefaultSymbols returns the libc baseline. Retain functions are
// project-specific; the default set is empty.
func DefaultSymbols() Symbols {
	return Symbols{
		Allocators: map[string]bool{
			"malloc":  true,
			"calloc":  true,
			"realloc": true,
			"strdup":  true,
			"strndup": true,
		},
		Releasers: map[string]bool{
			"free": true,
		},
		Retainers: map[string]bool{},
	}
}

// Clone deep-copies the table so per-run extensions never leak into
// the defaults.
func (s Symbols) Clone() Symbols {
	out := Symbols{
		Allocators: make(map[string]bool, len(s.Allocators)),
		Releasers:  make(map[string]bool, len(s.Releasers)),
		Retainers:  make(map[string]bool, len(s.Retainers)),
	}
	for k := range s.Allocators {
		out.Allocators[k] = true
	}
	for k := range s.Releasers {
		out.Releasers[k] = true
	}
	for k := range s.Retainers {
		out.Retainers[k] = true
	}
	return out
}

// IsAllocator reports whether a call to name yields a fresh owned
// allocation.
func (s Symbols) IsAllocator(name string) bool { return s.Allocators[name] }

// IsReleaser reports whether a call to name releases its argument.
func (s Symbols) IsReleaser(name string) bool { return s.Releasers[name] }

// IsRetainer reports whether a call to name takes an extra reference
// on its refcounted argument.
func (s Symbols) IsRetainer(name string) bool { return s.Retainers[name] }
