package models

// UnknownDocName is recorded for chunks and search hits whose source
// document name cannot be determined.
const UnknownDocName = "unknown_doc"

// DataChunk is a unit of source text produced by ingestion. Order starts at 1
// within its asset.
type DataChunk struct {
	ID        int64          `json:"id" db:"id"`
	Text      string         `json:"chunk_text" db:"chunk_text"`
	Metadata  map[string]any `json:"chunk_metadata" db:"chunk_metadata"`
	Order     int            `json:"chunk_order" db:"chunk_order"`
	ProjectID string         `json:"chunk_project_id" db:"chunk_project_id"`
	AssetID   int64          `json:"chunk_asset_id" db:"chunk_asset_id"`
}

// RetrievedDocument is a normalized vector search hit.
type RetrievedDocument struct {
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	DocName string  `json:"doc_name"`
}
