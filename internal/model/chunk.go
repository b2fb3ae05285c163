package model

import "strconv"

// Chunk is one paragraph of scraped source text staged for indexing.
type Chunk struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	SourceURL string `json:"url"`
}

// ChunkID derives the stable id of the index-th paragraph extracted from url.
func ChunkID(url string, index int) string {
	return url + "-" + strconv.Itoa(index)
}
