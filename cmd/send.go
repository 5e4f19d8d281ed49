package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/luma/ibzmq/client"
	"github.com/luma/ibzmq/internal/env"
)

var (
	// Send an out-of-band NOP instead of a request
	ping bool

	// How long to wait for the proxy to reply
	sendTimeout time.Duration
)

func init() {
	flags := SendCmd.PersistentFlags()

	flags.BoolVar(&ping, "ping", false, "Check the proxy is answering commands")
	flags.DurationVar(&sendTimeout, "timeout", 5*time.Second, "How long to wait for a reply")
}

var SendCmd = &cobra.Command{
	Use:   "send [field...]",
	Short: "Send a request to the gateway through a running proxy",
	Long: `Send a request to the gateway through a running proxy

Each argument is one field of the request.

Usage
	ibzmq send 49 1
	ibzmq send --ping

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		conf, err := env.LoadConfig(ctx, configPath)
		if err != nil {
			return err
		}

		nc, err := nats.Connect(conf.NATSURL, nats.Name("ibzmq-send"))
		if err != nil {
			return err
		}
		defer nc.Close()

		c := client.New(nc, client.Options{CommandSubject: conf.CommandSubject})

		if ping {
			err = c.Ping(ctx)
		} else {
			err = c.Send(ctx, args...)
		}

		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
}
