// Package score maps a pose detection and a requested discipline to a
// deterministic 0-100 posture quality score with human-readable feedback.
//
// Scoring is additive and rule-local: independent geometric rules each
// contribute a fixed point value, and a confidence-based multiplier scales
// the sum down (never up) when keypoint confidence is weak. The scorer is a
// pure function of its inputs and never fails; an empty or unreliable
// detection deterministically yields the zero-score result.
package score

import (
	"math"
	"strings"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// Score evaluates a detection against the named discipline's rules.
//
// ScanID, Timestamp, Source and ModelUsed are left for the coordinator to
// stamp; everything the rules determine is filled in here.
func Score(d types.Detection, discipline types.Discipline) *types.AnalysisResult {
	count, meanConf := visibleStats(d.Keypoints)
	if count < minVisible || meanConf < visibleFloor {
		return noPersonResult(d, discipline, meanConf)
	}

	var e evaluation
	evaluateShared(d, &e)

	switch discipline {
	case types.DisciplineSalutation:
		evaluateSalutation(d, &e)
	case types.DisciplineAttention:
		evaluateAttention(d, &e)
	case types.DisciplineMarching:
		evaluateMarching(d, &e)
	}

	multiplier := confidenceMultiplier(meanConf)
	score := int(math.Round(float64(e.points) * multiplier))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	feedback := strings.Join(e.passes, ". ")
	if feedback == "" {
		feedback = "Posture needs work across the board"
	}
	recommendations := e.advice
	if len(recommendations) == 0 {
		recommendations = []string{"Maintain your current posture"}
	}

	return &types.AnalysisResult{
		Discipline:      discipline,
		Success:         score >= types.SuccessThreshold,
		OverallScore:    score,
		PostureStatus:   types.StatusForScore(score),
		Feedback:        feedback,
		Confidence:      meanConf,
		Keypoints:       d.Keypoints,
		Recommendations: recommendations,
	}
}

// confidenceMultiplier derives the scaling factor from mean visible
// confidence: full credit at 0.7 and above, a linear ramp from 0.85 across
// [0.5, 0.7), and a proportional penalty below 0.5.
func confidenceMultiplier(c float64) float64 {
	switch {
	case c >= 0.7:
		return 1.0
	case c >= 0.5:
		return 0.85 + (c-0.5)*0.75
	default:
		return c / 0.5
	}
}

// noPersonResult is the canonical zero-score outcome: a body that was not
// reliably detected must never produce a misleadingly non-zero score.
func noPersonResult(d types.Detection, discipline types.Discipline, meanConf float64) *types.AnalysisResult {
	return &types.AnalysisResult{
		Discipline:    discipline,
		Success:       false,
		OverallScore:  0,
		PostureStatus: types.StatusNoPerson,
		Feedback:      "No person detected in the frame",
		Confidence:    meanConf,
		Keypoints:     d.Keypoints,
		Recommendations: []string{
			"Position your full body inside the camera frame",
			"Improve the lighting so the camera can see you clearly",
		},
	}
}
