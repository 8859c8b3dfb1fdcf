package server

import "github.com/icristescu/irmin-server/protocol"

func init() {
	register(protocol.CmdPing, handlePing)
}

// handlePing is side-effect-free (§4.7 "Connectivity").
func handlePing(_ *Session, _ *protocol.Unit) (*protocol.Unit, error) {
	return &protocol.Unit{}, nil
}
