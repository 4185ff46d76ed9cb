package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Ident represents an identifier token.
	Ident

	// C keywords.

	KwStruct  // struct
	KwIf      // if
	KwElse    // else
	KwWhile   // while
	KwReturn  // return
	KwVoid    // void
	KwConst   // const
	KwStatic  // static
	KwUnsigned // unsigned
	KwInt     // int
	KwChar    // char
	KwLong    // long
	KwShort   // short
	KwFloat   // float
	KwDouble  // double
	KwSizeof  // sizeof
	KwTypedef // typedef
	KwNull    // NULL

	// Annotation keywords. The lexer folds the short aliases
	// (m_g, m_o, ...) into the same kinds.

	KwMemGuarded        // memory_guarded
	KwMemOwner          // memory_owner
	KwMemTakePossession // memory_take_possession
	KwMemKeepAlive      // memory_keep_alive
	KwMemReleaseAfter   // memory_release_after_of
	KwMemOwnerOf        // memory_owner_of
	KwMemRefCount       // memory_ref_count
	KwMemPtrInOut       // memory_ptr_inout
	KwMemPtrOut         // memory_ptr_out

	// Literals.

	IntLit    // 123
	FloatLit  // 1.5
	CharLit   // 'a'
	StringLit // "abc"

	// Punctuation and operators.

	Plus       // +
	Minus      // -
	Star       // *
	Slash      // /
	Percent    // %
	Assign     // =
	PlusPlus   // ++
	MinusMinus // --
	PlusAssign // +=
	MinusAssign // -=
	EqEq       // ==
	BangEq     // !=
	Bang       // !
	Lt         // <
	LtEq       // <=
	Gt         // >
	GtEq       // >=
	Amp        // &
	AmpAmp     // &&
	Pipe       // |
	PipePipe   // ||
	Arrow      // ->
	Dot        // .
	Comma      // ,
	Semicolon  // ;
	LParen     // (
	RParen     // )
	LBrace     // {
	RBrace     // }
	LBracket   // [
	RBracket   // ]
)

// IsAnnotation reports whether the token is one of the memory_*
// annotation keywords.
func (k Kind) IsAnnotation() bool {
	switch k {
	case KwMemGuarded, KwMemOwner, KwMemTakePossession, KwMemKeepAlive,
		KwMemReleaseAfter, KwMemOwnerOf, KwMemRefCount, KwMemPtrInOut, KwMemPtrOut:
		return true
	default:
		return false
	}
}

// IsTypeKeyword reports whether the token can start a C type.
func (k Kind) IsTypeKeyword() bool {
	switch k {
	case KwVoid, KwConst, KwUnsigned, KwInt, KwChar, KwLong, KwShort,
		KwFloat, KwDouble, KwStruct:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var kindNames = [...]string{
	Invalid:             "invalid",
	EOF:                 "eof",
	Ident:               "ident",
	KwStruct:            "struct",
	KwIf:                "if",
	KwElse:              "else",
	KwWhile:             "while",
	KwReturn:            "return",
	KwVoid:              "void",
	KwConst:             "const",
	KwStatic:            "static",
	KwUnsigned:          "unsigned",
	KwInt:               "int",
	KwChar:              "char",
	KwLong:              "long",
	KwShort:             "short",
	KwFloat:             "float",
	KwDouble:            "double",
	KwSizeof:            "sizeof",
	KwTypedef:           "typedef",
	KwNull:              "NULL",
	KwMemGuarded:        "memory_guarded",
	KwMemOwner:          "memory_owner",
	KwMemTakePossession: "memory_take_possession",
	KwMemKeepAlive:      "memory_keep_alive",
	KwMemReleaseAfter:   "memory_release_after_of",
	KwMemOwnerOf:        "memory_owner_of",
	KwMemRefCount:       "memory_ref_count",
	KwMemPtrInOut:       "memory_ptr_inout",
	KwMemPtrOut:         "memory_ptr_out",
	IntLit:              "int literal",
	FloatLit:            "float literal",
	CharLit:             "char literal",
	StringLit:           "string literal",
	Plus:                "+",
	Minus:               "-",
	Star:                "*",
	Slash:               "/",
	Percent:             "%",
	Assign:              "=",
	PlusPlus:            "++",
	MinusMinus:          "--",
	PlusAssign:          "+=",
	MinusAssign:         "-=",
	EqEq:                "==",
	BangEq:              "!=",
	Bang:                "!",
	Lt:                  "<",
	LtEq:                "<=",
	Gt:                  ">",
	GtEq:                ">=",
	Amp:                 "&",
	AmpAmp:              "&&",
	Pipe:                "|",
	PipePipe:            "||",
	Arrow:               "->",
	Dot:                 ".",
	Comma:               ",",
	Semicolon:           ";",
	LParen:              "(",
	RParen:              ")",
	LBrace:              "{",
	RBrace:              "}",
	LBracket:            "[",
	RBracket:            "]",
}
