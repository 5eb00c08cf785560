package core

// Document is the transient unit of ingestion input: a file's raw bytes
// plus its path and whole-file content hash. Documents are constructed
// during an ingest pass and dropped after chunking; they are never
// persisted.
type Document struct {
	Filepath    string
	Content     []byte
	ContentHash string // 16 hex chars, sha256 prefix over Content
}

// Chunk is a minimal document retrieval unit: a bounded-length text
// fragment plus its provenance. AST-derived fields are optional and are
// left empty when the source chunker has no such notion (e.g. the plain
// text paragraph chunker).
type Chunk struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	ContentHash string `json:"content_hash"`
	NodeType    string `json:"node_type,omitempty"`
	ParentScope string `json:"parent_scope,omitempty"`
	LineRange   string `json:"line_range,omitempty"`
}

// SqlChunk is a minimal SQL query-log retrieval unit.
type SqlChunk struct {
	ID              string  `json:"id"`
	Text            string  `json:"text"` // normalized query, the text that gets embedded
	RawQuery        string  `json:"raw_query"`
	Source          string  `json:"source"` // originating database name
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	Calls           int64   `json:"calls"`
	ContentHash     string  `json:"content_hash"`
}

// SearchResult is a document-engine hit. Score and Distance carry the
// same value by contract; IsFTSMatch is true exactly when Distance is
// unset (a pure full-text hit with no vector score).
type SearchResult struct {
	Chunk      Chunk    `json:"chunk"`
	Distance   *float32 `json:"distance"`
	Score      *float32 `json:"score"`
	IsFTSMatch bool     `json:"is_fts_match"`
}

// SqlSearchResult is a SQL-engine hit, carrying a SqlChunk instead of a
// Chunk. Kept as a distinct type (a tagged union member, not a subclass)
// so CLI/HTTP/MCP rendering switches on which type it holds rather than
// probing for optional fields at runtime.
type SqlSearchResult struct {
	Chunk      SqlChunk `json:"chunk"`
	Distance   *float32 `json:"distance"`
	Score      *float32 `json:"score"`
	IsFTSMatch bool     `json:"is_fts_match"`
}

// EngineConfig describes one configured search engine: its model,
// dimensionality, table, and component wiring.
type EngineConfig struct {
	ModelName       string `yaml:"model_name"`
	VectorDimension int    `yaml:"vector_dimension"`
	MaxTokenLength  int    `yaml:"max_token_length"`
	TableName       string `yaml:"table_name"`
	MapperType      string `yaml:"mapper_type"`
	ChunkerType     string `yaml:"chunker_type"`
	ChunkMaxChars   int    `yaml:"chunk_max_chars"`
	QueryPrefix     string `yaml:"query_prefix"`
	PassagePrefix   string `yaml:"passage_prefix"`
	Workflow        string `yaml:"workflow"`
}
