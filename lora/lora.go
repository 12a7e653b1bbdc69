// Copyright 2025 The Loft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package lora provides the public API for low-rank adapter injection.
//
// Adapt walks a host module tree, replaces the dense layers matching the
// configured target selector with adapter layers, and freezes everything
// except the adapter parameters.
//
// Example:
//
//	cfg := lora.DefaultConfig()
//	cfg.Alpha = 16
//	cfg.TargetModules = []string{"q", "v"}
//
//	model, err := lora.Adapt[*cpu.CPUBackend](host, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.Train(true)
package lora

import (
	"github.com/loft-ml/loft/internal/lora"
	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/tensor"
)

// Heads is the fixed head count of the low-rank decomposition.
const Heads = lora.Heads

// DefaultRank is the default adapter rank.
const DefaultRank = lora.DefaultRank

// Config holds the hyperparameters of an adapter injection.
type Config = lora.Config

// BiasMode selects which bias parameters stay trainable after adaptation.
type BiasMode = lora.BiasMode

// Bias training modes.
const (
	BiasNone     BiasMode = lora.BiasNone
	BiasAll      BiasMode = lora.BiasAll
	BiasLoRAOnly BiasMode = lora.BiasLoRAOnly
)

// Layer wraps one frozen dense transform with a trainable low-rank update.
type Layer[B tensor.Backend] = lora.Layer[B]

// Model is a host network with adapters injected.
type Model[B tensor.Backend] = lora.Model[B]

// Quantized is implemented by host networks carrying 8-bit quantized
// weights.
type Quantized = lora.Quantized

// Sentinel errors.
var (
	ErrConfig              = lora.ErrConfig
	ErrNoTargetModules     = lora.ErrNoTargetModules
	ErrBiasMode            = lora.ErrBiasMode
	ErrQuantBackendMissing = lora.ErrQuantBackendMissing
	ErrUnsupported         = lora.ErrUnsupported
)

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return lora.DefaultConfig()
}

// LoadConfig reads a configuration file (.yaml/.yml, .json, .toml).
func LoadConfig(path string) (Config, error) {
	return lora.LoadConfig(path)
}

// Adapt injects adapter layers into root according to cfg.
func Adapt[B tensor.Backend](root nn.Composite[B], cfg Config) (*Model[B], error) {
	return lora.Adapt(root, cfg)
}

// NewLayer builds an adapter layer around an existing weight and optional
// bias. Most users should use Adapt instead.
func NewLayer[B tensor.Backend](
	inFeatures, outFeatures int,
	weight, bias *nn.Parameter[B],
	cfg Config,
	backend B,
) *Layer[B] {
	return lora.NewLayer(inFeatures, outFeatures, weight, bias, cfg, backend)
}
