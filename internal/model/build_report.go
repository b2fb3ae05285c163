package model

import "time"

type BuildReport struct {
	URLs     []string      `json:"urls"`
	Failed   []string      `json:"failed"`
	Staged   int           `json:"staged"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}
