package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/modguard-io/modguard/internal/domain/entity"
	"github.com/modguard-io/modguard/internal/infrastructure/metrics"
	"github.com/modguard-io/modguard/internal/registry"
)

// SwitchInput represents the input for switching the active model.
type SwitchInput struct {
	ModelName string `json:"model_name" binding:"required"`
}

// SwitchOutput represents the result of a switch request.
type SwitchOutput struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ActiveModel string `json:"active_model"`
}

// ModelListOutput represents the registered models and the active one.
type ModelListOutput struct {
	CurrentModel    string             `json:"current_model"`
	AvailableModels []string           `json:"available_models"`
	Models          []entity.ModelInfo `json:"models"`
}

// HealthOutput represents the service health snapshot.
type HealthOutput struct {
	Status          string   `json:"status"`
	ModelLoaded     bool     `json:"model_loaded"`
	AvailableModels []string `json:"available_models"`
	CurrentModel    string   `json:"current_model"`
	NumClasses      int      `json:"num_classes"`
}

// ModelUsecase exposes the model control surface: listing, switching and
// health reporting.
type ModelUsecase interface {
	List(ctx context.Context) (*ModelListOutput, error)
	Switch(ctx context.Context, name string) (*SwitchOutput, error)
	Health(ctx context.Context) *HealthOutput
}

type modelUsecase struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
}

// NewModelUsecase creates the model control usecase.
func NewModelUsecase(reg *registry.Registry, m *metrics.Metrics) ModelUsecase {
	return &modelUsecase{registry: reg, metrics: m}
}

func (u *modelUsecase) List(ctx context.Context) (*ModelListOutput, error) {
	names := u.registry.Names()
	infos := make([]entity.ModelInfo, 0, len(names))
	for _, name := range names {
		d, err := u.registry.Get(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, d.Info())
	}

	var current string
	if active, err := u.registry.Active(); err == nil {
		current = active.Name
	}

	return &ModelListOutput{
		CurrentModel:    current,
		AvailableModels: names,
		Models:          infos,
	}, nil
}

// Switch validates the requested name and atomically repoints the active
// model. On an unknown name the registry is left untouched and the error
// message names both the requested and the available models.
func (u *modelUsecase) Switch(ctx context.Context, name string) (*SwitchOutput, error) {
	if err := u.registry.SetActive(name); err != nil {
		return nil, fmt.Errorf("%w; available models: %s", err, strings.Join(u.registry.Names(), ", "))
	}

	u.metrics.RecordSwitch(name)
	return &SwitchOutput{
		Success:     true,
		Message:     fmt.Sprintf("active model switched to %q", name),
		ActiveModel: name,
	}, nil
}

func (u *modelUsecase) Health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Status:          "model_not_loaded",
		AvailableModels: u.registry.Names(),
	}

	active, err := u.registry.Active()
	if err != nil {
		return out
	}

	out.Status = "ok"
	out.ModelLoaded = true
	out.CurrentModel = active.Name
	out.NumClasses = len(active.Predictor.Labels())
	return out
}
