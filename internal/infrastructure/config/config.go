// Package config loads service configuration from defaults, an optional
// config file and MODGUARD_-prefixed environment variables, in increasing
// precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the inference service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Inference InferenceConfig `mapstructure:"inference"`
	Models    []ModelConfig   `mapstructure:"models"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InferenceConfig bounds request handling.
type InferenceConfig struct {
	MaxTextChars int    `mapstructure:"max_text_chars"`
	MaxBatchSize int    `mapstructure:"max_batch_size"`
	DefaultModel string `mapstructure:"default_model"`
}

// ModelConfig describes one artifact to load at startup.
type ModelConfig struct {
	Name        string `mapstructure:"name"`
	Kind        string `mapstructure:"kind"`
	Path        string `mapstructure:"path"`
	Description string `mapstructure:"description"`
}

// Load builds the configuration. A config file is optional; its location can
// be overridden with MODGUARD_CONFIG.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MODGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("modguard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/modguard")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Models) == 0 {
		cfg.Models = defaultModels()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("inference.max_text_chars", 10000)
	v.SetDefault("inference.max_batch_size", 32)
	v.SetDefault("inference.default_model", "")
}

// defaultModels mirrors the artifact layout the training pipeline writes
// under ./models.
func defaultModels() []ModelConfig {
	return []ModelConfig{
		{
			Name:        "logistic_regression",
			Kind:        "linear",
			Path:        "models/baselines/logistic_regression_tfidf.json",
			Description: "TF-IDF + Logistic Regression",
		},
		{
			Name:        "linear_svm",
			Kind:        "linear",
			Path:        "models/baselines/linear_svm_tfidf.json",
			Description: "TF-IDF + Linear SVM",
		},
		{
			Name:        "distilbert",
			Kind:        "transformer",
			Path:        "models/transformer/distilbert",
			Description: "Distilled transformer classifier",
		},
	}
}
