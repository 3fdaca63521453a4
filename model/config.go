package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config carries the hyperparameters and the learning-rate schedule of
// the online HDP trainer.
type Config struct {
	ChunkSize   int     `validate:"gt=0"` // documents per stochastic update
	Kappa       float64 `validate:"gt=0"` // learning-rate decay exponent
	Tau         float64 `validate:"gt=0"` // learning-rate offset down-weighting early chunks
	K           int     `validate:"gt=0"` // document-level truncation
	T           int     `validate:"gt=0"` // topic-level truncation
	Alpha       float64 `validate:"gt=0"` // document-level concentration
	Gamma       float64 `validate:"gt=0"` // topic-level concentration
	Eta         float64 `validate:"gt=0"` // topic Dirichlet prior
	Scale       float64 `validate:"gt=0"` // weight of each chunk in the learning rate
	VarConverge float64 `validate:"gt=0"` // relative ELBO threshold of local inference

	// Seed fixes the pseudo-random initialization of the topic-word
	// parameters. Zero picks a seed from the clock.
	Seed uint64
}

// DefaultConfig returns the trainer defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:   256,
		Kappa:       1.0,
		Tau:         64.0,
		K:           15,
		T:           150,
		Alpha:       1.0,
		Gamma:       1.0,
		Eta:         0.01,
		Scale:       1.0,
		VarConverge: 1e-4,
	}
}

// Validate rejects non-positive hyperparameters. It is cheap and meant
// to run before any file is touched.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("model: invalid config: %w", err)
	}
	return nil
}
