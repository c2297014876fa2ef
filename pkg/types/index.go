package types

// IndexStatus is the persisted state of the last indexing run.
type IndexStatus string

const (
	StatusIndexing  IndexStatus = "indexing"
	StatusCompleted IndexStatus = "completed"
	StatusFailed    IndexStatus = "failed"
)

// Metadata keys stored in the symbol store's metadata table.
const (
	MetaStatus         = "status"
	MetaCacheVersion   = "cache_format_version"
	MetaLastIndexed    = "last_indexed"
	MetaSymbolCount    = "symbol_count"
	MetaIndexStartTime = "index_start_time"
	MetaErrorMessage   = "error_message"
)

// TextElement is a searchable text fragment feeding the full-text index.
// It is rebuilt wholesale alongside symbols and is not authoritative.
type TextElement struct {
	FilePath    string `json:"file_path"`
	LineNumber  int    `json:"line_number"`
	ElementType string `json:"element_type"` // comment, docstring, string_literal
	Content     string `json:"content"`
	SymbolName  string `json:"symbol_name,omitempty"`
}

// Text element types.
const (
	ElementComment   = "comment"
	ElementDocstring = "docstring"
	ElementString    = "string_literal"
)

// Progress is the ephemeral status snapshot overwritten during a run.
type Progress struct {
	Status       string  `json:"status"`
	FilesTotal   int     `json:"files_total"`
	FilesCached  int     `json:"files_cached"`
	FilesToParse int     `json:"files_to_parse"`
	FilesParsed  int     `json:"files_parsed"`
	SymbolsFound int     `json:"symbols_found"`
	Timestamp    float64 `json:"timestamp"` // unix seconds
}
