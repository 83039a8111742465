package types

import (
	"encoding/json"
	"time"
)

// Discipline is the posture category being evaluated. Each discipline has
// its own scoring rules on top of the shared body-alignment rules.
type Discipline string

const (
	DisciplineSalutation Discipline = "salutation"
	DisciplineAttention  Discipline = "attention"
	DisciplineMarching   Discipline = "marching"
)

// Valid reports whether d is a known discipline.
func (d Discipline) Valid() bool {
	switch d {
	case DisciplineSalutation, DisciplineAttention, DisciplineMarching:
		return true
	}
	return false
}

// ResultSource tags the provenance of an analysis result.
type ResultSource string

const (
	// SourceLocal marks a result produced by the on-device model pipeline.
	SourceLocal ResultSource = "local"
	// SourceRemote marks a result obtained from a remote analyzer collaborator.
	SourceRemote ResultSource = "remote"
	// SourceFallback marks a synthetic result produced when no analyzer
	// was available. Fallback results must never be mistaken for genuine
	// assessments downstream.
	SourceFallback ResultSource = "fallback"
)

// SuccessThreshold is the single score cutoff shared by every discipline:
// a scan counts as successful iff OverallScore >= SuccessThreshold.
const SuccessThreshold = 75

// AnalysisResult is the outcome of one posture scan. It is produced fresh
// per analysis call and immutable once returned; callers persist it as-is.
type AnalysisResult struct {
	ScanID          string       `json:"scan_id"`
	Discipline      Discipline   `json:"discipline"`
	Success         bool         `json:"success"`
	OverallScore    int          `json:"overall_score"`
	PostureStatus   string       `json:"posture_status"`
	Feedback        string       `json:"feedback"`
	Confidence      float64      `json:"confidence"`
	Keypoints       []Keypoint   `json:"keypoints"`
	Recommendations []string     `json:"recommendations"`
	Timestamp       time.Time    `json:"timestamp"`
	Source          ResultSource `json:"source"`
	ModelUsed       string       `json:"model_used,omitempty"`
}

// ToJSON serializes the result for the persistence collaborator.
func (r *AnalysisResult) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// Status labels, a fixed ladder keyed on OverallScore.
const (
	StatusOutstanding      = "Outstanding"
	StatusExcellent        = "Excellent"
	StatusGood             = "Good"
	StatusFair             = "Fair"
	StatusNeedsImprovement = "Needs Improvement"
	StatusPoor             = "Poor Posture"
	StatusNoPerson         = "No Person Detected"
)

// StatusForScore maps a clamped score to its status label.
func StatusForScore(score int) string {
	switch {
	case score >= 85:
		return StatusOutstanding
	case score >= 75:
		return StatusExcellent
	case score >= 65:
		return StatusGood
	case score >= 50:
		return StatusFair
	case score >= 30:
		return StatusNeedsImprovement
	default:
		return StatusPoor
	}
}
