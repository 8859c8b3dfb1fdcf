package server

import "github.com/icristescu/irmin-server/protocol"

// register binds a concretely-typed handler function to a command
// name, erasing it into the protocol.Descriptor shape the registry
// stores (§9 "recover static typing inside each handler via the
// descriptor"). Panics (via protocol.Register) on a duplicate name,
// which can only indicate a programming error at startup.
func register[Req any, Resp any](name string, fn func(sess *Session, req *Req) (*Resp, error)) {
	protocol.Register(protocol.Descriptor{
		Name:        name,
		NewRequest:  func() interface{} { return new(Req) },
		NewResponse: func() interface{} { return new(Resp) },
		Handle: func(sessIface interface{}, reqIface interface{}) (interface{}, error) {
			sess := sessIface.(*Session)
			req := reqIface.(*Req)
			return fn(sess, req)
		},
	})
}
