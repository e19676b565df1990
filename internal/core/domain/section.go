package domain

// SectionEntry is a curated fast-path record. Keywords are the trigger
// phrases that activate the exact-match path.
type SectionEntry struct {
	SectionID string   `json:"section"`
	Act       string   `json:"act"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Keywords  []string `json:"keywords"`
}

// UploadRecord describes one ingested document in the uploads index.
type UploadRecord struct {
	Filename string `json:"filename"`
	Act      string `json:"act,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
}

// UploadMatch is an upload record scored against a query by the uploads
// index. CoreDocument marks the canonical reference acts (BNS, IPC, ...)
// whose presence lets the gatherer skip the broad unfiltered search.
type UploadMatch struct {
	Record       UploadRecord `json:"record"`
	Score        int          `json:"score"`
	CoreDocument bool         `json:"core_document"`
}
