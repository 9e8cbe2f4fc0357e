package models

// RawPage is the text of one page as produced by a loader strategy or OCR
type RawPage struct {
	Text string
	Page int
}

// Fragment is a bounded window of page text with its provenance
type Fragment struct {
	Text  string
	Page  int
	Start int
	End   int
	Index int
}

// processing method recorded in fragment metadata
const (
	ProcessingNative = "native"
	ProcessingOCR    = "ocr"
)

// SourceInfo summarizes one ingested document
type SourceInfo struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	UploadTime string `json:"upload_time"`
}

// Source is a cited fragment returned with an answer
type Source struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// QAResult is the answer plus its citations
type QAResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// UploadTimeLayout is the timestamp format stored in fragment metadata
const UploadTimeLayout = "2006-01-02 15:04:05"
