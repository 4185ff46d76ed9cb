package token

var keywords = map[string]Kind{
	"struct":   KwStruct,
	"if":       KwIf,
	"else":     KwElse,
	"while":    KwWhile,
	"return":   KwReturn,
	"void":     KwVoid,
	"const":    KwConst,
	"static":   KwStatic,
	"unsigned": KwUnsigned,
	"int":      KwInt,
	"char":     KwChar,
	"long":     KwLong,
	"short":    KwShort,
	"float":    KwFloat,
	"double":   KwDouble,
	"sizeof":   KwSizeof,
	"typedef":  KwTypedef,
	"NULL":     KwNull,

	"memory_guarded":          KwMemGuarded,
	"memory_owner":            KwMemOwner,
	"memory_take_possession":  KwMemTakePossession,
	"memory_keep_alive":       KwMemKeepAlive,
	"memory_release_after_of": KwMemReleaseAfter,
	"memory_owner_of":         KwMemOwnerOf,
	"memory_ref_count":        KwMemRefCount,
	"memory_ptr_inout":        KwMemPtrInOut,
	"memory_ptr_out":          KwMemPtrOut,

	// Short aliases from the original notation header.
	"m_g":   KwMemGuarded,
	"m_o":   KwMemOwner,
	"m_t":   KwMemTakePossession,
	"m_o_":  KwMemOwnerOf,
	"m_rc":  KwMemRefCount,
	"m_io":  KwMemPtrInOut,
	"m_out": KwMemPtrOut,
}

// LookupKeyword returns the kind for a keyword spelling. Keywords are
// case-sensitive; only the exact spellings are recognized.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// RegisterAlias maps an extra identifier spelling onto an annotation
// keyword kind. Used by project config to support renamed macros.
// Non-annotation kinds are rejected. The table is not synchronized:
// register aliases before any lexing starts.
func RegisterAlias(spelling string, kind Kind) bool {
	if spelling == "" || !kind.IsAnnotation() {
		return false
	}
	keywords[spelling] = kind
	return true
}
