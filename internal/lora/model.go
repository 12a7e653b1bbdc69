// Package lora injects trainable low-rank adapters into a frozen network.
//
// Adapt walks a host module tree, replaces every dense layer whose dotted
// path matches the configured target selector with an adapter Layer, and
// freezes everything except the adapter parameters. The wrapped Model then
// exposes training-mode control, an adapter on/off toggle, and the
// effective configuration for checkpoint metadata.
package lora

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/tensor"
)

// Logger receives adaptation-time diagnostics (coerced options, replace
// counts). Callers may swap it for their own sink.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
	Timestamp().Str("component", "lora").Logger()

// Quantized is implemented by host networks carrying 8-bit quantized
// weights. Adapting such a host requires a quantized execution backend,
// which this build does not provide, so Adapt rejects it.
type Quantized interface {
	LoadedIn8Bit() bool
}

// Model is a host network with adapters injected.
type Model[B tensor.Backend] struct {
	root   nn.Composite[B]
	config Config
	layers []*Layer[B]
	paths  []string
}

// replacement records one matched dense layer before any mutation happens.
type replacement[B tensor.Backend] struct {
	parent nn.Composite[B]
	name   string
	path   string
	linear *nn.Linear[B]
}

// Adapt injects adapter layers into root according to cfg.
//
// Only direct *nn.Linear children of Composite modules are adaptable; a
// selector match on any other module kind is ignored. The host tree is
// mutated in place on success and left untouched on error.
func Adapt[B tensor.Backend](root nn.Composite[B], cfg Config) (*Model[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if q, ok := root.(Quantized); ok && q.LoadedIn8Bit() {
		return nil, ErrQuantBackendMissing
	}
	if len(cfg.EnableBranches) > 0 {
		return nil, fmt.Errorf("%w: enable_lora selects the merged-linear variant, which is not implemented", ErrUnsupported)
	}

	match, err := cfg.matcher()
	if err != nil {
		return nil, err
	}

	// Collect first, replace after: an error below this point must leave
	// the host tree unmodified.
	var repls []replacement[B]
	for _, nm := range nn.NamedModules[B](root) {
		parent, ok := nm.Module.(nn.Composite[B])
		if !ok {
			continue
		}
		for _, name := range parent.ChildNames() {
			child, ok := parent.Child(name)
			if !ok {
				continue
			}
			lin, ok := child.(*nn.Linear[B])
			if !ok {
				continue
			}
			path := name
			if nm.Path != "" {
				path = nm.Path + "." + name
			}
			if match(path) {
				repls = append(repls, replacement[B]{parent: parent, name: name, path: path, linear: lin})
			}
		}
	}

	if len(repls) == 0 {
		return nil, fmt.Errorf("%w: selector %s", ErrNoTargetModules, cfg.selectorString())
	}

	// Dense layers store their weight [out, in]; fan_in_fan_out is only
	// meaningful for transposed-storage layers.
	if cfg.FanInFanOut {
		Logger.Warn().Msg("fan_in_fan_out set for standard dense layers, coercing to false")
		cfg.FanInFanOut = false
	}

	m := &Model[B]{root: root, config: cfg}
	for _, r := range repls {
		layer := NewLayer(
			r.linear.InFeatures(), r.linear.OutFeatures(),
			r.linear.Weight(), r.linear.Bias(),
			cfg, r.linear.BackendOf(),
		)
		if err := r.parent.SetChild(r.name, layer); err != nil {
			return nil, fmt.Errorf("lora: replacing %q: %w", r.path, err)
		}
		m.layers = append(m.layers, layer)
		m.paths = append(m.paths, r.path)
	}

	if err := markOnlyAdapterTrainable[B](root, cfg.Bias, m.layers); err != nil {
		return nil, err
	}

	Logger.Debug().Int("layers", len(m.layers)).Str("selector", cfg.selectorString()).
		Msg("adapters injected")

	if cfg.InferenceMode {
		m.Eval()
	}

	return m, nil
}

// Forward runs the adapted host network.
func (m *Model[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return m.root.Forward(input)
}

// Root returns the underlying host module tree.
func (m *Model[B]) Root() nn.Composite[B] { return m.root }

// Config returns the effective adapter configuration.
func (m *Model[B]) Config() Config { return m.config }

// ConfigMap exports the effective configuration as checkpoint metadata.
func (m *Model[B]) ConfigMap(inference bool) map[string]any {
	return m.config.AsMap(inference)
}

// Layers returns the injected adapter layers in tree order.
func (m *Model[B]) Layers() []*Layer[B] {
	return append([]*Layer[B](nil), m.layers...)
}

// LayerPaths returns the dotted paths of the replaced modules, aligned
// with Layers.
func (m *Model[B]) LayerPaths() []string {
	return append([]string(nil), m.paths...)
}

// Parameters returns every parameter of the adapted network.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	return m.root.Parameters()
}

// EnableAdapters re-enables adapter layers disabled by DisableAdapters.
// Idempotent.
func (m *Model[B]) EnableAdapters() {
	for _, l := range m.layers {
		l.SetDisabled(false)
	}
}

// DisableAdapters marks every adapter layer disabled. Idempotent.
//
// A disabled layer rejects Forward calls: running the base network without
// adapter math requires merging (MergeWeights plus Eval) instead.
func (m *Model[B]) DisableAdapters() {
	for _, l := range m.layers {
		l.SetDisabled(true)
	}
}

// Train propagates the training mode to every mode-aware module in the
// tree, including the injected adapter layers (which merge or unmerge
// their delta as configured).
func (m *Model[B]) Train(mode bool) {
	nn.Visit[B](m.root, func(_ string, mod nn.Module[B]) {
		if tm, ok := mod.(nn.TrainMode); ok {
			tm.Train(mode)
		}
	})
}

// Eval switches the whole tree into evaluation mode.
func (m *Model[B]) Eval() {
	m.Train(false)
}
