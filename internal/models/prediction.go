package models

import (
	"encoding/json"
	"fmt"
)

// Safety levels assigned by the predictor.
const (
	SafetyLevelSafety    = "Safety"
	SafetyLevelModerate  = "Moderate"
	SafetyLevelAmbitious = "Ambitious"
)

// PredictionRequest is the JSON body of llm_prediction. Rank and Percentile
// are omitted when empty.
type PredictionRequest struct {
	Rank       string `json:"rank,omitempty"`
	Percentile string `json:"percentile,omitempty"`
	State      string `json:"state"`
	Category   string `json:"category"`
	PwD        string `json:"pwd"`
	Gender     string `json:"gender"`
}

// College is one ranked prediction.
type College struct {
	CollegeName           string   `json:"college_name"`
	CollegeType           string   `json:"college_type"`
	Branch                string   `json:"branch"`
	Location              string   `json:"location"`
	ProbabilityPercentage float64  `json:"probability_percentage"`
	SafetyLevel           string   `json:"safety_level"`
	CutoffRank2023        int      `json:"cutoff_rank_2023"`
	Factors               []string `json:"factors,omitempty"`
}

// PredictionMetadata echoes the parameters the predictor used.
type PredictionMetadata struct {
	ParametersUsed struct {
		Rank json.RawMessage `json:"rank,omitempty"`
	} `json:"parameters_used"`
}

// UsedRank returns the rank echoed by the server, number or string.
func (m PredictionMetadata) UsedRank() string {
	raw := m.ParametersUsed.Rank
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// PredictionResult is the data envelope of llm_prediction.
type PredictionResult struct {
	Predictions []College          `json:"predictions"`
	Metadata    PredictionMetadata `json:"metadata"`
}

// CompareRequest names the two colleges to compare.
type CompareRequest struct {
	College1 College `json:"college1"`
	College2 College `json:"college2"`
}

// Comparison is the overlay content returned by compare_predicted.
type Comparison struct {
	College1Name   string           `json:"college1_name"`
	College2Name   string           `json:"college2_name"`
	Comparison     ComparisonPoints `json:"comparison"`
	Recommendation string           `json:"recommendation"`
}

// ComparisonPoints accepts either a JSON array of strings or a single string.
type ComparisonPoints []string

// UnmarshalJSON implements json.Unmarshaler.
func (c *ComparisonPoints) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*c = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return fmt.Errorf("comparison: expected string or array: %w", err)
	}
	if one == "" {
		*c = nil
		return nil
	}
	*c = ComparisonPoints{one}
	return nil
}
