package lora

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// BiasMode selects which bias parameters stay trainable after adaptation.
type BiasMode string

// Bias training modes. The string values are the wire values used in
// exported configuration maps and config files.
const (
	BiasNone     BiasMode = "none"      // no bias is trained
	BiasAll      BiasMode = "all"       // every bias in the network is trained
	BiasLoRAOnly BiasMode = "lora_only" // only adapter-layer biases are trained
)

// DefaultRank is the default adapter rank.
const DefaultRank = 8

// Config holds the hyperparameters of an adapter injection.
//
// Exactly one of TargetModules (suffix match against dotted module paths)
// or TargetPattern (full-match regular expression) must be set. Alpha is
// required; R defaults to 8; R == 0 disables the adapter math entirely and
// every adapted layer behaves as its frozen original.
type Config struct {
	R             int      `json:"r"                 yaml:"r"                 toml:"r"`
	Alpha         float32  `json:"lora_alpha"        yaml:"lora_alpha"        toml:"lora_alpha"`
	Dropout       float32  `json:"lora_dropout"      yaml:"lora_dropout"      toml:"lora_dropout"`
	TargetModules []string `json:"target_modules"    yaml:"target_modules"    toml:"target_modules"`
	TargetPattern string   `json:"target_pattern"    yaml:"target_pattern"    toml:"target_pattern"`
	FanInFanOut   bool     `json:"fan_in_fan_out"    yaml:"fan_in_fan_out"    toml:"fan_in_fan_out"`
	MergeWeights  bool     `json:"merge_weights"     yaml:"merge_weights"     toml:"merge_weights"`
	Bias          BiasMode `json:"bias"              yaml:"bias"              toml:"bias"`
	Router        bool     `json:"lora_router"       yaml:"lora_router"       toml:"lora_router"`
	RouterMixer   bool     `json:"lora_router_mixer" yaml:"lora_router_mixer" toml:"lora_router_mixer"`
	InferenceMode bool     `json:"inference_mode"    yaml:"inference_mode"    toml:"inference_mode"`

	// EnableBranches selects the multi-branch merged-linear variant.
	// That variant is not implemented; setting this is rejected at
	// Adapt time with ErrUnsupported.
	EnableBranches []bool `json:"enable_lora" yaml:"enable_lora" toml:"enable_lora"`
}

// DefaultConfig returns a Config with the documented defaults. Alpha and
// the target selector must still be provided by the caller.
func DefaultConfig() Config {
	return Config{
		R:    DefaultRank,
		Bias: BiasNone,
	}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.R < 0 {
		return fmt.Errorf("%w: r must be >= 0, got %d", ErrConfig, c.R)
	}
	if c.Alpha <= 0 {
		return fmt.Errorf("%w: lora_alpha must be provided and positive, got %g", ErrConfig, c.Alpha)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("%w: lora_dropout must be in [0, 1), got %g", ErrConfig, c.Dropout)
	}
	if len(c.TargetModules) == 0 && c.TargetPattern == "" {
		return fmt.Errorf("%w: a target selector is required (target_modules or target_pattern)", ErrConfig)
	}
	if len(c.TargetModules) > 0 && c.TargetPattern != "" {
		return fmt.Errorf("%w: target_modules and target_pattern are mutually exclusive", ErrConfig)
	}
	if c.TargetPattern != "" {
		if _, err := regexp.Compile(c.TargetPattern); err != nil {
			return fmt.Errorf("%w: invalid target_pattern %q: %v", ErrConfig, c.TargetPattern, err)
		}
	}
	switch c.Bias {
	case BiasNone, BiasAll, BiasLoRAOnly:
	default:
		return fmt.Errorf("%w: %q", ErrBiasMode, c.Bias)
	}
	return nil
}

// Scaling returns the adapter scaling factor alpha/r.
func (c Config) Scaling() float32 {
	if c.R == 0 {
		return 0
	}
	return c.Alpha / float32(c.R)
}

// matcher returns the selector predicate over dotted module paths:
// a full regular-expression match when TargetPattern is set, otherwise a
// suffix match against any entry of TargetModules.
func (c Config) matcher() (func(path string) bool, error) {
	if c.TargetPattern != "" {
		re, err := regexp.Compile(`\A(?:` + c.TargetPattern + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid target_pattern %q: %v", ErrConfig, c.TargetPattern, err)
		}
		return re.MatchString, nil
	}

	targets := c.TargetModules
	return func(path string) bool {
		for _, t := range targets {
			if strings.HasSuffix(path, t) {
				return true
			}
		}
		return false
	}, nil
}

// selectorString names the selector for error messages.
func (c Config) selectorString() string {
	if c.TargetPattern != "" {
		return c.TargetPattern
	}
	return fmt.Sprintf("%v", c.TargetModules)
}

// AsMap exports the effective configuration as a flat option-name -> value
// map for checkpoint metadata. When inference is true, the map reports
// inference_mode as set.
func (c Config) AsMap(inference bool) map[string]any {
	m := map[string]any{
		"r":                 c.R,
		"lora_alpha":        c.Alpha,
		"lora_dropout":      c.Dropout,
		"target_modules":    c.TargetModules,
		"target_pattern":    c.TargetPattern,
		"fan_in_fan_out":    c.FanInFanOut,
		"merge_weights":     c.MergeWeights,
		"bias":              string(c.Bias),
		"lora_router":       c.Router,
		"lora_router_mixer": c.RouterMixer,
		"enable_lora":       c.EnableBranches,
		"inference_mode":    c.InferenceMode,
	}
	if inference {
		m["inference_mode"] = true
	}
	return m
}

// LoadConfig reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml. Fields absent from the file keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, fmt.Errorf("%w: empty config path", ErrConfig)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	default:
		return cfg, fmt.Errorf("%w: unsupported config extension %q", ErrConfig, ext)
	}
	return cfg, nil
}
