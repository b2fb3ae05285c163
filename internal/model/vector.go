package model

type VectorMetadata struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type VectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata VectorMetadata `json:"metadata"`
}

type Match struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	SourceURL string  `json:"url"`
	Score     float32 `json:"score"`
}
