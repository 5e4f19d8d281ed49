package command_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/luma/ibzmq/command"
)

type recordingWriter struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
}

func (w *recordingWriter) WriteMessage(ctx context.Context, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	w.writes = append(w.writes, append([]byte{}, data...))
	return nil
}

func (w *recordingWriter) Writes() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.writes
}

var _ = Describe("command / Gateway", func() {
	var (
		ctx     context.Context
		gateway *command.Gateway
		logs    *observer.ObservedLogs
	)

	BeforeEach(func() {
		ctx = context.Background()

		var core zapcore.Core
		core, logs = observer.New(zap.DebugLevel)
		gateway = command.NewGateway(zap.New(core))
	})

	Describe("control frames", func() {
		It("answers NOP with OK without a connection", func() {
			Expect(gateway.HandleRequest(ctx, "1", []byte("OOB\x00NOP"))).To(Equal([]byte("OK")))
		})

		It("answers NOP with OK and writes nothing with a connection", func() {
			w := &recordingWriter{}
			gateway.Register(w)

			Expect(gateway.HandleRequest(ctx, "1", []byte("OOB\x00NOP"))).To(Equal([]byte("OK")))
			Expect(w.Writes()).To(BeEmpty())
		})

		It("answers unknown verbs with ERR and logs an error", func() {
			Expect(gateway.HandleRequest(ctx, "1", []byte("OOB\x00FOO"))).To(Equal([]byte("ERR")))

			err := gateway.Handle(ctx, "2", []byte("OOB\x00FOO"))
			Expect(errors.Is(err, command.ErrUnrecognizedControlVerb)).To(BeTrue())

			Expect(logs.FilterMessage("Unrecognized out-of-band message").Len()).To(Equal(2))
		})

		It("does not disturb the active connection", func() {
			w := &recordingWriter{}
			gateway.Register(w)

			gateway.HandleRequest(ctx, "1", []byte("OOB\x00FOO"))

			active, ok := gateway.Active()
			Expect(ok).To(BeTrue())
			Expect(active).To(BeIdenticalTo(w))
			Expect(w.Writes()).To(BeEmpty())
		})
	})

	Describe("pass-through frames", func() {
		payload := []byte("49\x001\x00")

		It("answers ERR without a connection", func() {
			Expect(gateway.HandleRequest(ctx, "1", payload)).To(Equal([]byte("ERR")))
			Expect(gateway.Handle(ctx, "1", payload)).To(MatchError(command.ErrNoActiveConnection))
		})

		It("writes the payload verbatim exactly once", func() {
			w := &recordingWriter{}
			gateway.Register(w)

			Expect(gateway.HandleRequest(ctx, "1", payload)).To(Equal([]byte("OK")))
			Expect(w.Writes()).To(Equal([][]byte{payload}))
		})

		It("answers ERR when the write fails", func() {
			w := &recordingWriter{err: errors.New("broken pipe")}
			gateway.Register(w)

			Expect(gateway.HandleRequest(ctx, "1", payload)).To(Equal([]byte("ERR")))
		})

		It("serves concurrent requesters", func() {
			w := &recordingWriter{}
			gateway.Register(w)

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					Expect(gateway.HandleRequest(ctx, "n", payload)).To(Equal([]byte("OK")))
				}()
			}
			wg.Wait()

			Expect(w.Writes()).To(HaveLen(20))
		})
	})

	Describe("Register() / Unregister()", func() {
		It("replaces the previous handle", func() {
			first, second := &recordingWriter{}, &recordingWriter{}
			gateway.Register(first)
			gateway.Register(second)

			active, ok := gateway.Active()
			Expect(ok).To(BeTrue())
			Expect(active).To(BeIdenticalTo(second))
		})

		It("only clears the handle it was given", func() {
			first, second := &recordingWriter{}, &recordingWriter{}
			gateway.Register(first)
			gateway.Register(second)

			gateway.Unregister(first)
			_, ok := gateway.Active()
			Expect(ok).To(BeTrue())

			gateway.Unregister(second)
			_, ok = gateway.Active()
			Expect(ok).To(BeFalse())
		})
	})
})
