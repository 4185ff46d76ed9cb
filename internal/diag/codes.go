package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Lexical.
	LexUnknownChar              Code = 1001
	LexUnterminatedString       Code = 1002
	LexUnterminatedBlockComment Code = 1003
	LexBadNumber                Code = 1004

	// Syntax.
	SynUnexpectedToken   Code = 2001
	SynExpectIdentifier  Code = 2002
	SynExpectSemicolon   Code = 2003
	SynUnclosedBrace     Code = 2004
	SynUnclosedParen     Code = 2005
	SynExpectType        Code = 2006
	SynBadAnnotationArg  Code = 2007
	SynUnexpectedTopLevel Code = 2008

	// Annotation model.
	AnnConflict         Code = 3001
	AnnDuplicateFlowTag Code = 3002
	AnnDuplicateLifeTag Code = 3003
	AnnUnresolvedTarget Code = 3004

	// Ownership graph construction.
	BuildUnresolvedSymbol   Code = 4001
	BuildAnnotationConflict Code = 4002
	BuildDuplicateSymbol    Code = 4003

	// Flow findings: defects of the analyzed program.
	MemDoubleFree               Code = 5001
	MemUseAfterFree             Code = 5002
	MemLeak                     Code = 5003
	MemGuardedFree              Code = 5004
	MemStackEscape              Code = 5005
	MemReleaseOfAdjustedPointer Code = 5006
	MemUnanalyzableFlow         Code = 5007
	MemAmbiguousOwnership       Code = 5008
	MemRefCountNegative         Code = 5009

	// I/O and configuration.
	IOLoadFileError Code = 9001
	ConfigError     Code = 9002

	// Observability.
	ObsTimings Code = 9100
)

func (c Code) String() string {
	switch c {
	case LexUnknownChar:
		return "LEX_UNKNOWN_CHAR"
	case LexUnterminatedString:
		return "LEX_UNTERMINATED_STRING"
	case LexUnterminatedBlockComment:
		return "LEX_UNTERMINATED_BLOCK_COMMENT"
	case LexBadNumber:
		return "LEX_BAD_NUMBER"
	case SynUnexpectedToken:
		return "SYN_UNEXPECTED_TOKEN"
	case SynExpectIdentifier:
		return "SYN_EXPECT_IDENTIFIER"
	case SynExpectSemicolon:
		return "SYN_EXPECT_SEMICOLON"
	case SynUnclosedBrace:
		return "SYN_UNCLOSED_BRACE"
	case SynUnclosedParen:
		return "SYN_UNCLOSED_PAREN"
	case SynExpectType:
		return "SYN_EXPECT_TYPE"
	case SynBadAnnotationArg:
		return "SYN_BAD_ANNOTATION_ARG"
	case SynUnexpectedTopLevel:
		return "SYN_UNEXPECTED_TOP_LEVEL"
	case AnnConflict:
		return "ANN_CONFLICT"
	case AnnDuplicateFlowTag:
		return "ANN_DUPLICATE_FLOW_TAG"
	case AnnDuplicateLifeTag:
		return "ANN_DUPLICATE_LIFETIME_TAG"
	case AnnUnresolvedTarget:
		return "ANN_UNRESOLVED_TARGET"
	case BuildUnresolvedSymbol:
		return "BUILD_UNRESOLVED_SYMBOL"
	case BuildAnnotationConflict:
		return "BUILD_ANNOTATION_CONFLICT"
	case BuildDuplicateSymbol:
		return "BUILD_DUPLICATE_SYMBOL"
	case MemDoubleFree:
		return "MEM_DOUBLE_FREE"
	case MemUseAfterFree:
		return "MEM_USE_AFTER_FREE"
	case MemLeak:
		return "MEM_LEAK"
	case MemGuardedFree:
		return "MEM_GUARDED_FREE"
	case MemStackEscape:
		return "MEM_STACK_ESCAPE"
	case MemReleaseOfAdjustedPointer:
		return "MEM_RELEASE_OF_ADJUSTED_POINTER"
	case MemUnanalyzableFlow:
		return "MEM_UNANALYZABLE_FLOW"
	case MemAmbiguousOwnership:
		return "MEM_AMBIGUOUS_OWNERSHIP"
	case MemRefCountNegative:
		return "MEM_REFCOUNT_NEGATIVE"
	case IOLoadFileError:
		return "IO_LOAD_FILE_ERROR"
	case ConfigError:
		return "CONFIG_ERROR"
	case ObsTimings:
		return "OBS_TIMINGS"
	case UnknownCode:
		return "UNKNOWN"
	}
	return fmt.Sprintf("CODE_%d", uint16(c))
}
