package types

import (
	"errors"
	"fmt"
)

// SymbolKind represents the kind of extracted declaration.
type SymbolKind string

const (
	KindClass    SymbolKind = "class"
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
)

// Symbol represents one declaration extracted from a source file.
// The JSON tags define the cache artifact layout; bump cache.Version
// whenever they change.
type Symbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Signature string     `json:"signature"`
	Docstring string     `json:"docstring,omitempty"` // first line only, truncated
	FilePath  string     `json:"file_path"`           // relative to project root
	LineStart int        `json:"line_number"`
	LineEnd   int        `json:"end_line_number,omitempty"`
	Parent    string     `json:"parent,omitempty"` // enclosing type name, methods only
}

// FullName returns Parent.Name for methods and Name otherwise.
func (s *Symbol) FullName() string {
	if s.Parent != "" {
		return s.Parent + "." + s.Name
	}
	return s.Name
}

// Location returns the file:line position of the symbol.
func (s *Symbol) Location() string {
	return fmt.Sprintf("%s:%d", s.FilePath, s.LineStart)
}

// ValidateKind checks if the symbol kind is valid.
func (s *Symbol) ValidateKind() error {
	switch s.Kind {
	case KindClass, KindFunction, KindMethod:
		return nil
	default:
		return errors.New("invalid symbol kind")
	}
}

// Validate performs comprehensive validation of the symbol.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}
	if err := s.ValidateKind(); err != nil {
		return err
	}
	if s.FilePath == "" {
		return errors.New("symbol file path is required")
	}
	if s.LineStart < 1 {
		return errors.New("symbol line number must be >= 1")
	}
	if (s.Parent != "") != (s.Kind == KindMethod) {
		return errors.New("parent must be set iff kind is method")
	}
	return nil
}
