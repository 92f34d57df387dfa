package entity

// ModelKind identifies the family of a loaded classifier.
type ModelKind string

const (
	ModelKindLinear      ModelKind = "linear"
	ModelKindTransformer ModelKind = "transformer"
)

// ModelInfo describes one registered model for client display.
type ModelInfo struct {
	Name        string    `json:"name"`
	Kind        ModelKind `json:"kind"`
	Labels      []string  `json:"labels"`
	NumClasses  int       `json:"num_classes"`
	Description string    `json:"description,omitempty"`
}
