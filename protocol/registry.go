package protocol

import "sort"

// Handler is the erased command handler contract (§4.4, §9 "dynamic
// dispatch over heterogeneous commands"): it receives the session and
// decoded request as interface{} and recovers static typing internally
// via a type assertion back to the server's concrete Session and
// request-pointer types. This lets package protocol hold the registry
// without importing package server, which owns Session and avoids an
// import cycle (server imports protocol for framing).
type Handler func(session interface{}, request interface{}) (response interface{}, err error)

// Descriptor binds a command name to its request/response prototypes
// (used only to allocate a fresh zero value to decode into) and its
// handler (§4.4).
type Descriptor struct {
	Name        string
	NewRequest  func() interface{}
	NewResponse func() interface{}
	Handle      Handler
}

var registry = map[string]Descriptor{}

// Register adds d to the process-wide command table. It is intended to
// be called only from package-level var/init blocks during process
// startup (§9 "global mutable state": construct once, treat as
// read-only thereafter); it panics on a duplicate name since that can
// only indicate a programming error.
func Register(d Descriptor) {
	if _, exists := registry[d.Name]; exists {
		panic("protocol: duplicate command registration: " + d.Name)
	}
	registry[d.Name] = d
}

// OfName looks up a command descriptor by name (§4.4).
func OfName(name string) (Descriptor, bool) {
	d, ok := registry[name]
	return d, ok
}

// Commands enumerates every registered command name in sorted order
// (§4.4).
func Commands() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
