package model

// Document identifies a PDF in the catalogue. The raw bytes are loaded once
// per session and owned by the session, not by this type.
type Document struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
}

// Chain is a variable → prompt-template catalogue entry.
type Chain struct {
	Variable string `json:"variable" yaml:"variable"`
	Prompt   string `json:"prompt" yaml:"prompt"`
}
