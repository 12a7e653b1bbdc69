package nn

import (
	"github.com/loft-ml/loft/internal/tensor"
)

// NamedModule pairs a module with its dotted path inside a tree.
// The root module has path "".
type NamedModule[B tensor.Backend] struct {
	Path   string
	Module Module[B]
}

// NamedParameter pairs a parameter with its dotted path inside a tree
// (module path + "." + parameter name).
type NamedParameter[B tensor.Backend] struct {
	Path  string
	Param *Parameter[B]
}

// NamedModules returns every module reachable from root, depth-first, with
// dotted paths built from Composite child names. The root itself is
// included with path "".
func NamedModules[B tensor.Backend](root Module[B]) []NamedModule[B] {
	var out []NamedModule[B]

	var walk func(path string, m Module[B])
	walk = func(path string, m Module[B]) {
		out = append(out, NamedModule[B]{Path: path, Module: m})

		c, ok := m.(Composite[B])
		if !ok {
			return
		}
		for _, name := range c.ChildNames() {
			child, ok := c.Child(name)
			if !ok {
				continue
			}
			childPath := name
			if path != "" {
				childPath = path + "." + name
			}
			walk(childPath, child)
		}
	}

	walk("", root)
	return out
}

// Visit calls fn for every module reachable from root with its dotted path,
// in the same depth-first order as NamedModules.
func Visit[B tensor.Backend](root Module[B], fn func(path string, m Module[B])) {
	for _, nm := range NamedModules(root) {
		fn(nm.Path, nm.Module)
	}
}

// NamedParameters returns every parameter reachable from root with its
// dotted path. Composite modules contribute only through their children;
// leaf modules contribute their own Parameters() under the module path.
func NamedParameters[B tensor.Backend](root Module[B]) []NamedParameter[B] {
	var out []NamedParameter[B]

	for _, nm := range NamedModules(root) {
		if _, ok := nm.Module.(Composite[B]); ok {
			continue
		}
		for _, p := range nm.Module.Parameters() {
			path := p.Name()
			if nm.Path != "" {
				path = nm.Path + "." + p.Name()
			}
			out = append(out, NamedParameter[B]{Path: path, Param: p})
		}
	}
	return out
}
