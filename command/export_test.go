package command

import "github.com/nats-io/nats.go"

// SetResponder replaces how replies are sent, for tests without a NATS server.
func (s *Server) SetResponder(respond func(msg *nats.Msg, data []byte) error) {
	s.respond = respond
}
