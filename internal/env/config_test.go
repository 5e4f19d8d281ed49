package env_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/luma/ibzmq/internal/env"
)

var _ = Describe("env", func() {
	Describe("LoadConfig()", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "ibzmq-config")
			Expect(err).To(Succeed())
		})

		AfterEach(func() {
			os.RemoveAll(dir)
			os.Unsetenv("IBZMQ_TWS_PORT")
			os.Unsetenv("IBZMQ_KAFKA_BROKERS")
		})

		writeFile := func(contents string) string {
			path := filepath.Join(dir, "ibzmq.yaml")
			Expect(os.WriteFile(path, []byte(contents), 0600)).To(Succeed())
			return path
		}

		It("uses defaults without a file", func() {
			conf, err := env.LoadConfig(context.Background(), "")
			Expect(err).To(Succeed())

			Expect(conf.TWSHost).To(Equal("127.0.0.1"))
			Expect(conf.TWSPort).To(Equal(7496))
			Expect(conf.ClientID).To(Equal(0))
			Expect(conf.ClientVersion).To(Equal(59))
			Expect(conf.CommandSubject).To(Equal("ibzmq.command"))
			Expect(conf.ReconnectBackoff).To(Equal(500 * time.Millisecond))
			Expect(conf.KafkaBrokers).To(BeEmpty())
		})

		It("reads the environment", func() {
			os.Setenv("IBZMQ_TWS_PORT", "4002")
			os.Setenv("IBZMQ_KAFKA_BROKERS", "k1:9092,k2:9092")

			conf, err := env.LoadConfig(context.Background(), "")
			Expect(err).To(Succeed())
			Expect(conf.TWSPort).To(Equal(4002))
			Expect(conf.KafkaBrokers).To(Equal([]string{"k1:9092", "k2:9092"}))
		})

		It("lets the file override the environment", func() {
			os.Setenv("IBZMQ_TWS_PORT", "4002")

			path := writeFile(`
ibzmq:
  ibtws.host: gateway.local
  ibtws.port: 7497
  endpoint.command: tws.command
  endpoint.broadcast: tws.broadcast
  kafka.brokers:
    - k1:9092
    - k2:9092
`)

			conf, err := env.LoadConfig(context.Background(), path)
			Expect(err).To(Succeed())
			Expect(conf.TWSHost).To(Equal("gateway.local"))
			Expect(conf.TWSPort).To(Equal(7497))
			Expect(conf.CommandSubject).To(Equal("tws.command"))
			Expect(conf.BroadcastSubject).To(Equal("tws.broadcast"))
			Expect(conf.KafkaBrokers).To(Equal([]string{"k1:9092", "k2:9092"}))
		})

		It("reports every bad key together", func() {
			path := writeFile(`
ibzmq:
  ibtws.port: seven
  ibtws.colour: blue
`)

			_, err := env.LoadConfig(context.Background(), path)
			Expect(multierr.Errors(errors.Unwrap(err))).To(HaveLen(2))
			Expect(errors.Is(err, env.ErrUnknownKey)).To(BeTrue())
		})

		It("requires the ibzmq section", func() {
			path := writeFile("other:\n  key: value\n")

			_, err := env.LoadConfig(context.Background(), path)
			Expect(errors.Is(err, env.ErrMissingKey)).To(BeTrue())
		})

		It("fails when the file is missing", func() {
			_, err := env.LoadConfig(context.Background(), filepath.Join(dir, "missing.yaml"))
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
	})

	Describe("Validate()", func() {
		It("reports all missing required values", func() {
			conf := &env.Config{}

			errs := multierr.Errors(conf.Validate())
			Expect(errs).To(HaveLen(4))
			Expect(errors.Is(errs[1], env.ErrInvalidPort)).To(BeTrue())
		})
	})

	Describe("MakeLogger()", func() {
		It("builds a logger at the requested level", func() {
			log, err := env.MakeLogger("warn")
			Expect(err).To(Succeed())
			Expect(log.Core().Enabled(zapcore.InfoLevel)).To(BeFalse())
			Expect(log.Core().Enabled(zapcore.WarnLevel)).To(BeTrue())
		})

		It("rejects unknown levels", func() {
			_, err := env.MakeLogger("loud")
			Expect(err).To(HaveOccurred())
		})
	})
})
