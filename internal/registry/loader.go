package registry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/modguard-io/modguard/internal/adapter/linear"
	"github.com/modguard-io/modguard/internal/adapter/transformer"
	"github.com/modguard-io/modguard/internal/domain/entity"
	"github.com/modguard-io/modguard/internal/domain/service"
	"github.com/modguard-io/modguard/internal/infrastructure/config"
)

// Build loads every configured artifact and registers the successful ones.
// A model that fails to load is logged and skipped so the remaining models
// keep serving; zero loadable models is fatal. When cfg.Inference.DefaultModel
// names a loaded model it becomes the initial active selection, otherwise the
// first loaded model serves.
func Build(cfg *config.Config, log *zap.Logger) (*Registry, error) {
	reg := New()

	for _, mc := range cfg.Models {
		var (
			p    service.Predictor
			kind entity.ModelKind
			err  error
		)
		switch mc.Kind {
		case string(entity.ModelKindLinear):
			kind = entity.ModelKindLinear
			p, err = linear.Load(mc.Path)
		case string(entity.ModelKindTransformer):
			kind = entity.ModelKindTransformer
			p, err = transformer.Load(mc.Path)
		default:
			err = fmt.Errorf("unknown model kind %q", mc.Kind)
		}
		if err != nil {
			log.Warn("Skipping model that failed to load",
				zap.String("model", mc.Name),
				zap.String("path", mc.Path),
				zap.Error(err))
			continue
		}

		if err := reg.Register(mc.Name, kind, p); err != nil {
			return nil, err
		}
		log.Info("Loaded model",
			zap.String("model", mc.Name),
			zap.String("kind", string(kind)),
			zap.Int("num_classes", len(p.Labels())))
	}

	if reg.Len() == 0 {
		return nil, fmt.Errorf("%w: no model artifact could be loaded", ErrNoModelLoaded)
	}

	if name := cfg.Inference.DefaultModel; name != "" {
		if err := reg.SetActive(name); err != nil {
			log.Warn("Configured default model is not loaded, using first loaded model",
				zap.String("model", name))
		}
	}

	return reg, nil
}
