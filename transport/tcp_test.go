package transport_test

import (
	"context"
	"net"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/ibzmq/command"
	"github.com/luma/ibzmq/decoder"
	"github.com/luma/ibzmq/transport"
)

var _ = Describe("transport / Upstream", func() {
	var (
		listener  net.Listener
		publisher *recordingPublisher
		commands  *command.Gateway
	)

	BeforeEach(func() {
		var err error
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(Succeed())

		publisher = &recordingPublisher{}
		commands = command.NewGateway(nil)
	})

	AfterEach(func() {
		listener.Close()
	})

	makeUpstream := func(port int) *transport.Upstream {
		log, err := zap.NewDevelopment()
		Expect(err).To(Succeed())

		return transport.NewUpstream(transport.Options{
			Host:              "127.0.0.1",
			Port:              port,
			ReconnectAttempts: 2,
			ReconnectBackoff:  10 * time.Millisecond,
			Publisher:         publisher,
			Registrar:         commands,
			Log:               log,
		})
	}

	listenerPort := func() int {
		_, port, err := net.SplitHostPort(listener.Addr().String())
		Expect(err).To(Succeed())

		n, err := strconv.Atoi(port)
		Expect(err).To(Succeed())
		return n
	}

	accept := func() *fakeGateway {
		conn, err := listener.Accept()
		Expect(err).To(Succeed())
		return &fakeGateway{conn: conn}
	}

	It("connects, decodes and reports status", func() {
		upstream := makeUpstream(listenerPort())
		Expect(upstream.Status().State).To(Equal(string(decoder.Disconnected)))
		Expect(upstream.Start(context.Background())).To(Succeed())

		gateway := accept()
		defer gateway.conn.Close()

		gateway.handshake()
		gateway.send("9", "1", "42")

		Eventually(publisher.Messages).Should(HaveLen(1))
		Expect(upstream.Status().State).To(Equal(string(decoder.AwaitingMessageHeader)))
		Expect(upstream.Status().Messages).To(Equal(uint64(1)))

		Expect(upstream.Close()).To(Succeed())
		Eventually(upstream.Done()).Should(BeClosed())
		Expect(upstream.Err()).To(Succeed())
	})

	It("reconnects with a fresh session after the gateway hangs up", func() {
		upstream := makeUpstream(listenerPort())
		Expect(upstream.Start(context.Background())).To(Succeed())
		defer upstream.Close()

		first := accept()
		first.handshake()
		first.conn.Close()

		second := accept()
		defer second.conn.Close()

		second.handshake()
		second.send("9", "1", "43")

		Eventually(publisher.Messages).Should(HaveLen(1))
		Expect(publisher.Messages()[0].Fields).To(Equal([]string{"9", "1", "43"}))
	})

	It("gives up when the gateway cannot be reached", func() {
		port := listenerPort()
		listener.Close()

		upstream := makeUpstream(port)
		Expect(upstream.Start(context.Background())).To(Succeed())

		Eventually(upstream.Done(), 5*time.Second).Should(BeClosed())
		Expect(upstream.Err()).To(HaveOccurred())
	})
})
