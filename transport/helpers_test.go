package transport_test

import (
	"context"
	"io"
	"net"
	"sync"

	. "github.com/onsi/gomega"

	"github.com/luma/ibzmq/protocol"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*protocol.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, msg *protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Messages() []*protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*protocol.Message{}, p.messages...)
}

// fakeGateway plays the gateway's side of a session.
type fakeGateway struct {
	conn net.Conn
}

func (g *fakeGateway) expect(data string) {
	buf := make([]byte, len(data))
	_, err := io.ReadFull(g.conn, buf)
	ExpectWithOffset(1, err).To(Succeed())
	ExpectWithOffset(1, string(buf)).To(Equal(data))
}

func (g *fakeGateway) send(fields ...string) {
	ExpectWithOffset(1, protocol.WriteFields(g.conn, fields...)).To(Succeed())
}

// handshake answers the client version and consumes the client id.
func (g *fakeGateway) handshake() {
	g.expect("59\x00")
	g.send("76", "20260101 09:30:00 EST")
	g.expect("0\x00")
}
