package model

type Answer struct {
	Answer      string `json:"answer"`
	Source      string `json:"source"`
	ContextUsed string `json:"context_used,omitempty"`
}
