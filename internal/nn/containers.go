package nn

import (
	"fmt"
	"strconv"

	"github.com/loft-ml/loft/internal/tensor"
)

// ModuleMap is an ordered name -> module container.
//
// Forward applies the children in insertion order, each output feeding the
// next input, so a ModuleMap is a Sequential with meaningful child names.
// It implements Composite: children can be looked up and replaced by name,
// which is how adapter injection rewrites a host network in place.
type ModuleMap[B tensor.Backend] struct {
	names   []string
	modules map[string]Module[B]
}

// NewModuleMap creates an empty ModuleMap.
func NewModuleMap[B tensor.Backend]() *ModuleMap[B] {
	return &ModuleMap[B]{modules: make(map[string]Module[B])}
}

// Add appends a named child. Panics on duplicate names.
func (m *ModuleMap[B]) Add(name string, module Module[B]) *ModuleMap[B] {
	if _, exists := m.modules[name]; exists {
		panic(fmt.Sprintf("ModuleMap: duplicate child name %q", name))
	}
	m.names = append(m.names, name)
	m.modules[name] = module
	return m
}

// Forward applies all children in insertion order.
func (m *ModuleMap[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	output := input
	for _, name := range m.names {
		output = m.modules[name].Forward(output)
	}
	return output
}

// Parameters returns all children's parameters in insertion order.
func (m *ModuleMap[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, name := range m.names {
		params = append(params, m.modules[name].Parameters()...)
	}
	return params
}

// ChildNames returns the child names in insertion order.
func (m *ModuleMap[B]) ChildNames() []string {
	return append([]string(nil), m.names...)
}

// Child returns the child with the given name.
func (m *ModuleMap[B]) Child(name string) (Module[B], bool) {
	mod, ok := m.modules[name]
	return mod, ok
}

// SetChild replaces the child with the given name.
func (m *ModuleMap[B]) SetChild(name string, module Module[B]) error {
	if _, ok := m.modules[name]; !ok {
		return fmt.Errorf("ModuleMap: no child named %q", name)
	}
	m.modules[name] = module
	return nil
}

// Sequential chains modules together; each module's output becomes the next
// module's input. Children are addressed by their decimal index ("0", "1",
// ...), matching the container's parameter naming.
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns all trainable parameters from all modules.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
func (s *Sequential[B]) Module(index int) Module[B] {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// ChildNames returns the decimal indices of the children.
func (s *Sequential[B]) ChildNames() []string {
	names := make([]string, len(s.modules))
	for i := range s.modules {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// Child returns the child at the given decimal index.
func (s *Sequential[B]) Child(name string) (Module[B], bool) {
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 || idx >= len(s.modules) {
		return nil, false
	}
	return s.modules[idx], true
}

// SetChild replaces the child at the given decimal index.
func (s *Sequential[B]) SetChild(name string, module Module[B]) error {
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 || idx >= len(s.modules) {
		return fmt.Errorf("Sequential: no child named %q", name)
	}
	s.modules[idx] = module
	return nil
}
