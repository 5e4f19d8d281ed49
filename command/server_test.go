package command_test

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/ibzmq/command"
)

type fakeSubscriber struct {
	subject string
	queue   string
	handler nats.MsgHandler
	err     error
}

func (f *fakeSubscriber) QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.subject, f.queue, f.handler = subject, queue, cb
	return &nats.Subscription{Subject: subject, Queue: queue}, nil
}

var _ = Describe("command / Server", func() {
	var (
		sub     *fakeSubscriber
		gateway *command.Gateway
		server  *command.Server
		replies map[string][]byte
	)

	BeforeEach(func() {
		sub = &fakeSubscriber{}
		gateway = command.NewGateway(nil)
		replies = map[string][]byte{}

		server = command.NewServer(command.ServerOptions{
			Conn:    sub,
			Subject: "ibzmq.command",
			Queue:   "ibzmq",
			Gateway: gateway,
		})
		server.SetResponder(func(msg *nats.Msg, data []byte) error {
			replies[msg.Reply] = data
			return nil
		})
	})

	It("subscribes to the command subject in its queue group", func() {
		Expect(server.Start(context.Background())).To(Succeed())
		Expect(sub.subject).To(Equal("ibzmq.command"))
		Expect(sub.queue).To(Equal("ibzmq"))
	})

	It("returns subscription errors", func() {
		sub.err = errors.New("no servers available")
		Expect(server.Start(context.Background())).To(MatchError("no servers available"))
	})

	It("replies on the request's reply subject", func() {
		Expect(server.Start(context.Background())).To(Succeed())

		sub.handler(&nats.Msg{Subject: "ibzmq.command", Reply: "_INBOX.1", Data: []byte("OOB\x00NOP")})
		sub.handler(&nats.Msg{Subject: "ibzmq.command", Reply: "_INBOX.2", Data: []byte("OOB\x00FOO")})
		sub.handler(&nats.Msg{Subject: "ibzmq.command", Reply: "_INBOX.3", Data: []byte("49\x001\x00")})

		Expect(replies).To(Equal(map[string][]byte{
			"_INBOX.1": []byte("OK"),
			"_INBOX.2": []byte("ERR"),
			"_INBOX.3": []byte("ERR"),
		}))
	})

	It("does not reply to fire-and-forget messages", func() {
		Expect(server.Start(context.Background())).To(Succeed())

		sub.handler(&nats.Msg{Subject: "ibzmq.command", Data: []byte("OOB\x00NOP")})
		Expect(replies).To(BeEmpty())
	})

	It("cannot be closed before it starts", func() {
		Expect(server.Close()).To(MatchError(command.ErrNotStarted))
	})
})
