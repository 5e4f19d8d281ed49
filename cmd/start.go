package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	reuseport "github.com/kavu/go_reuseport"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/ibzmq/broadcast"
	"github.com/luma/ibzmq/command"
	"github.com/luma/ibzmq/continuation"
	"github.com/luma/ibzmq/internal/env"
	"github.com/luma/ibzmq/storage"
	"github.com/luma/ibzmq/transport"
)

var (
	// The gateway to connect to, overriding the config
	twsHost string
	twsPort int

	// The port to listen for http requests on, overriding the config
	httpPort int

	// Log every field read from the gateway
	trace bool
)

func init() {
	flags := StartCmd.PersistentFlags()

	flags.StringVar(&twsHost, "tws-host", "", "The gateway host to connect to")
	flags.IntVar(&twsPort, "tws-port", 0, "The gateway port to connect to")
	flags.IntVar(&httpPort, "http-port", 0, "The port to listen to HTTP requests on")
	flags.BoolVar(&trace, "trace", false, "Log every field read from the gateway")
}

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start up the ibzmq proxy",
	Long: `Start up the ibzmq proxy

Connects to the gateway, publishes every message it sends on the broadcast
subject and answers requests on the command subject.

Usage
	ibzmq start --config ibzmq.yaml

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, err := env.LoadConfig(ctx, configPath)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("tws-host") {
			conf.TWSHost = twsHost
		}
		if flags.Changed("tws-port") {
			conf.TWSPort = twsPort
		}
		if flags.Changed("http-port") {
			conf.HTTPPort = httpPort
		}

		log, err := env.MakeLogger(conf.LogLevel)
		if err != nil {
			return err
		}
		defer log.Sync()

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		nc, err := nats.Connect(conf.NATSURL, nats.Name("ibzmq"), nats.MaxReconnects(-1))
		if err != nil {
			return err
		}
		defer nc.Close()

		store := storage.NewInmemoryStore()
		defer store.Close()

		publisher := broadcast.Fanout{
			broadcast.NewNATSPublisher(nc, conf.BroadcastSubject, log.Named("broadcast")),
			broadcast.NewStorePublisher(store),
		}

		if len(conf.KafkaBrokers) > 0 {
			producer, err := broadcast.NewKafkaProducer(conf.KafkaBrokers, "ibzmq")
			if err != nil {
				return err
			}

			kafka := broadcast.NewKafkaPublisher(producer, conf.KafkaTopic)
			defer kafka.Close()

			publisher = append(publisher, kafka)
			log.Info("Mirroring to Kafka",
				zap.Strings("brokers", conf.KafkaBrokers),
				zap.String("topic", conf.KafkaTopic))
		}

		gateway := command.NewGateway(log.Named("command"))

		server := command.NewServer(command.ServerOptions{
			Conn:    nc,
			Subject: conf.CommandSubject,
			Queue:   conf.CommandQueue,
			Timeout: conf.CommandTimeout,
			Gateway: gateway,
			Log:     log.Named("command"),
		})

		if err := server.Start(ctx); err != nil {
			return err
		}

		upstream := transport.NewUpstream(transport.Options{
			Host:              conf.TWSHost,
			Port:              conf.TWSPort,
			ClientID:          conf.ClientID,
			ClientVersion:     conf.ClientVersion,
			ReconnectAttempts: conf.ReconnectAttempts,
			ReconnectBackoff:  conf.ReconnectBackoff,
			Trace:             trace,
			Registry:          continuation.DefaultRegistry(),
			Publisher:         publisher,
			Registrar:         gateway,
			Log:               log.Named("transport"),
		})

		if err := upstream.Start(ctx); err != nil {
			return err
		}

		router := NewRouter(RouterOptions{
			DebugHTTP: conf.DebugHTTP,
			Status:    upstream,
			Store:     store,
			Log:       log.Named("http"),
		})

		listener, err := reuseport.Listen("tcp", net.JoinHostPort(conf.HTTPHost, strconv.Itoa(conf.HTTPPort)))
		if err != nil {
			return err
		}

		s := &http.Server{
			Handler: router,
		}

		// Serve in a goroutine so that it won't block the graceful shutdown
		// handling below
		go func() {
			if err := s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		log.Info("Listening",
			zap.String("gateway", net.JoinHostPort(conf.TWSHost, strconv.Itoa(conf.TWSPort))),
			zap.String("commands", conf.CommandSubject),
			zap.String("broadcast", conf.BroadcastSubject),
			zap.String("http", listener.Addr().String()))

		select {
		case <-ctx.Done():
		case <-upstream.Done():
			err = upstream.Err()
		}

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		var shutdownErr error
		shutdownErr = multierr.Append(shutdownErr, s.Shutdown(shutdownCtx))
		shutdownErr = multierr.Append(shutdownErr, server.Close())
		shutdownErr = multierr.Append(shutdownErr, upstream.Close())

		if shutdownErr != nil {
			log.Error("Forced to shutdown", zap.Error(shutdownErr))
		}

		log.Info("Exiting")
		return err
	},
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
