package ast

type (
	// FuncID identifies a function in the builder's arena.
	FuncID uint32
	// StructID identifies a struct declaration.
	StructID uint32
	// ParamID identifies a function parameter.
	ParamID uint32
	// FieldID identifies a struct field.
	FieldID uint32
	// StmtID identifies a statement.
	StmtID uint32
	// ExprID identifies an expression.
	ExprID uint32
)

// Index 0 of every arena is a zero sentinel so the No*ID constants
// stay safe zero values.
const (
	NoFuncID   FuncID   = 0
	NoStructID StructID = 0
	NoParamID  ParamID  = 0
	NoFieldID  FieldID  = 0
	NoStmtID   StmtID   = 0
	NoExprID   ExprID   = 0
)

func (id FuncID) IsValid() bool   { return id != NoFuncID }
func (id StructID) IsValid() bool { return id != NoStructID }
func (id ParamID) IsValid() bool  { return id != NoParamID }
func (id FieldID) IsValid() bool  { return id != NoFieldID }
func (id StmtID) IsValid() bool   { return id != NoStmtID }
func (id ExprID) IsValid() bool   { return id != NoExprID }
