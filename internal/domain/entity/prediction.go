package entity

// ClassScore is the probability assigned to a single class label.
type ClassScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// PredictionResult represents the outcome of classifying one text.
// Scores are sorted by descending score and sum to 1 within floating-point
// tolerance; Confidence always equals the score of PredictedLabel.
type PredictionResult struct {
	PredictedLabel  string       `json:"predicted_label"`
	Confidence      float64      `json:"confidence"`
	Scores          []ClassScore `json:"scores"`
	InferenceTimeMs float64      `json:"inference_time_ms"`
	ModelUsed       string       `json:"model_used"`
}

// TopScore returns the score recorded for the predicted label.
func (p *PredictionResult) TopScore() float64 {
	for _, s := range p.Scores {
		if s.Label == p.PredictedLabel {
			return s.Score
		}
	}
	return 0
}
