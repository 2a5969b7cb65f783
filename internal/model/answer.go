package model

import (
	"strings"
	"time"
)

// ConfidenceLevel is the model's self-reported confidence in an answer.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMiddle ConfidenceLevel = "middle"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ParseConfidenceLevel maps a raw model-reported level onto the enum.
// Matching is case-insensitive; "medium" is accepted as a synonym of middle.
func ParseConfidenceLevel(s string) (ConfidenceLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh, true
	case "middle", "medium":
		return ConfidenceMiddle, true
	case "low":
		return ConfidenceLow, true
	}
	return "", false
}

// LabelSource records whether a label value came from the model or a human.
type LabelSource string

const (
	SourceAI     LabelSource = "ai"
	SourceManual LabelSource = "manual"
)

// LabelRecord is one persisted labeling interaction, upserted by
// (DocID, Variable). Label always holds the last value applied by the user;
// AILabel and ManualLabel keep provenance separately.
type LabelRecord struct {
	DocID         string      `json:"doc_id"`
	Variable      string      `json:"variable"`
	Label         string      `json:"label"`
	AILabel       string      `json:"ai_label"`
	ManualLabel   string      `json:"manual_label"`
	PromptVersion string      `json:"prompt_version"`
	Source        LabelSource `json:"source"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
