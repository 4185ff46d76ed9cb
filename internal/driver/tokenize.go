package driver

import (
	"memlint/internal/diag"
	"memlint/internal/lexer"
	"memlint/internal/source"
	"memlint/internal/token"
)

// TokenizeResult carries the token stream of one file.
type TokenizeResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tokens  []token.Token
	Bag     *diag.Bag
}

// Tokenize lexes one file for the tokenize command.
func Tokenize(path string, maxFindings int) (*TokenizeResult, error) {
	if maxFindings <= 0 {
		maxFindings = defaultMaxFindings
	}

	fs := source.NewFileSet()
	fileID, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	file := fs.Get(fileID)

	bag := diag.NewBag(maxFindings)
	lx := lexer.New(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})

	return &TokenizeResult{
		FileSet: fs,
		File:    file,
		Tokens:  lx.Tokens(),
		Bag:     bag,
	}, nil
}
