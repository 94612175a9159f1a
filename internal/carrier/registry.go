// Package carrier implements the process-wide carrier registry: the
// append-only table of per-domain operations (is/split/join/collapse/union)
// that let a value-like type be infectiously wrapped with state. See
// spec.md §3.3, §4.2, and the teacher's analogous type-class instance table
// (internal/types.InstanceEnv in the teacher repo) for the open-dispatch
// pattern this generalizes.
package carrier

import (
	"fmt"
	"sync"

	"github.com/sunholo/wyrm/internal/types"
)

// Metadata carries optional runtime-emission hints for a carrier: the name
// of its "clean value" constructor and the names of its effect
// constructors (spec.md §3.3).
type Metadata struct {
	ValueConstructor   string
	EffectConstructors []string
}

// Ops is the five-operation contract a carrier domain registers.
type Ops struct {
	Is          func(t types.Type) bool
	Split       func(t types.Type) (value, state types.Type, ok bool)
	Join        func(value, state types.Type) types.Type
	Collapse    func(t types.Type) types.Type
	UnionStates func(s1, s2 types.Type) (types.Type, error)
	Metadata    *Metadata
}

var (
	mu          sync.RWMutex
	domainOrder []string
	domains     = map[string][]Ops{}
)

// Register appends ops to domain's carrier list. Registration is append-only
// for the lifetime of the process; lookups try every registered carrier for
// a domain in insertion order, and the first matching Is wins (spec.md §3.3).
func Register(domain string, ops Ops) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := domains[domain]; !exists {
		domainOrder = append(domainOrder, domain)
	}
	domains[domain] = append(domains[domain], ops)
}

// lookup finds the first Ops in domain whose Is matches t.
func lookup(domain string, t types.Type) (Ops, bool) {
	mu.RLock()
	defer mu.RUnlock()
	for _, ops := range domains[domain] {
		if ops.Is(t) {
			return ops, true
		}
	}
	return Ops{}, false
}

// FindDomain returns the first registered domain (in registration order)
// whose Is matches t.
func FindDomain(t types.Type) (string, bool) {
	mu.RLock()
	order := append([]string(nil), domainOrder...)
	mu.RUnlock()
	for _, d := range order {
		if _, ok := lookup(d, t); ok {
			return d, true
		}
	}
	return "", false
}

// IsCarrierType reports whether t matches any registered carrier.
func IsCarrierType(t types.Type) bool {
	_, ok := FindDomain(t)
	return ok
}

// Split decomposes t into its value and state components using whichever
// registered domain recognizes it.
func Split(t types.Type) (value, state types.Type, domain string, ok bool) {
	d, found := FindDomain(t)
	if !found {
		return nil, nil, "", false
	}
	ops, _ := lookup(d, t)
	v, s, splitOK := ops.Split(t)
	return v, s, d, splitOK
}

// Join composes a carrier of the given domain from a value and a state. It
// uses the domain's first registered Ops (domains typically register a
// single Ops per domain; multiple registrations are for recognizing
// structurally distinct carriers under the same domain, e.g. Result and a
// second error-carrying shape, which still join via their own shared
// convention — callers that need a specific variant's Join should look it
// up via the Ops they obtained from Split/FindDomain instead).
func Join(domain string, value, state types.Type) (types.Type, error) {
	mu.RLock()
	ops := domains[domain]
	mu.RUnlock()
	if len(ops) == 0 {
		return nil, fmt.Errorf("carrier: no ops registered for domain %q", domain)
	}
	return ops[0].Join(value, state), nil
}

// Collapse removes nested carrier wrappers from t, preserving the combined
// state, using whichever domain recognizes t.
func Collapse(t types.Type) types.Type {
	d, ok := FindDomain(t)
	if !ok {
		return t
	}
	ops, _ := lookup(d, t)
	return ops.Collapse(t)
}

// UnionStates merges two state values for a domain (for row domains, this
// is the row-union rule in rowunion.go).
func UnionStates(domain string, s1, s2 types.Type) (types.Type, error) {
	mu.RLock()
	ops := domains[domain]
	mu.RUnlock()
	if len(ops) == 0 {
		return nil, fmt.Errorf("carrier: no ops registered for domain %q", domain)
	}
	return ops[0].UnionStates(s1, s2)
}

// MetadataFor returns the runtime-emission metadata for the Ops that
// recognizes t, if any.
func MetadataFor(t types.Type) (*Metadata, bool) {
	d, ok := FindDomain(t)
	if !ok {
		return nil, false
	}
	ops, _ := lookup(d, t)
	return ops.Metadata, ops.Metadata != nil
}

// genericCollapse implements "remove nested carrier wrappers, preserving
// the state" for any domain whose value component can itself be a carrier
// of the same domain: collapse(C<C<v,s1>,s2>) = C<v, union(s1,s2)>.
func genericCollapse(domain string, t types.Type, ops Ops) types.Type {
	value, state, ok := ops.Split(t)
	if !ok {
		return t
	}
	if !ops.Is(value) {
		return t
	}
	innerValue, innerState, ok := ops.Split(value)
	if !ok {
		return t
	}
	merged, err := ops.UnionStates(innerState, state)
	if err != nil {
		return t
	}
	collapsedInner := genericCollapse(domain, ops.Join(innerValue, merged), ops)
	return collapsedInner
}
