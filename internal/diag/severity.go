package diag

// Severity defines the importance of a finding.
type Severity uint8

const (
	// SevInfo is for informational findings (precision downgrades,
	// ambiguous defaults).
	SevInfo Severity = iota
	// SevWarning is for likely-but-not-certain defects.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
