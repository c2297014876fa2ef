package types

import (
	"path/filepath"
	"strings"
)

// Language identifies the source language a symbol was extracted from.
// Similarity detection only compares symbols of the same language.
type Language string

const (
	LangPython     Language = "python"
	LangCpp        Language = "cpp"
	LangRust       Language = "rust"
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangUnknown    Language = "unknown"
)

// LanguageForPath maps a file path to its source language by extension.
func LanguageForPath(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyi":
		return LangPython
	case ".cpp", ".cc", ".cxx", ".hpp", ".h", ".hxx":
		return LangCpp
	case ".rs":
		return LangRust
	case ".go":
		return LangGo
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	default:
		return LangUnknown
	}
}
