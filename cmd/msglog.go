package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/ibzmq/client"
	"github.com/luma/ibzmq/internal/env"
	"github.com/luma/ibzmq/protocol"
	"github.com/luma/ibzmq/storage"
)

var MsglogCmd = &cobra.Command{
	Use:   "msglog",
	Short: "Record every broadcast message in Redis",
	Long: `Record every broadcast message in Redis

Messages are pushed onto a capped list, newest first, and the latest message
of each type is kept in a hash next to it.

Usage
	ibzmq msglog --config ibzmq.yaml

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, err := env.LoadConfig(ctx, configPath)
		if err != nil {
			return err
		}

		log, err := env.MakeLogger(conf.LogLevel)
		if err != nil {
			return err
		}
		defer log.Sync()

		rdb := redis.NewClient(&redis.Options{Addr: conf.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}

		store := storage.NewRedisStore(rdb, conf.RedisKey, conf.RedisMaxLen)
		defer store.Close()

		nc, err := nats.Connect(conf.NATSURL, nats.Name("ibzmq-msglog"))
		if err != nil {
			return err
		}
		defer nc.Close()

		c := client.New(nc, client.Options{
			BroadcastSubject: conf.BroadcastSubject,
			Log:              log.Named("client"),
		})
		defer c.Close()

		if err := c.Subscribe(); err != nil {
			return err
		}

		log.Info("Logging messages",
			zap.String("subject", conf.BroadcastSubject),
			zap.String("redis", conf.RedisAddr),
			zap.String("key", conf.RedisKey))

		return logMessages(ctx, c.UpdateChan(), store, log)
	},
}

func logMessages(ctx context.Context, updates <-chan *protocol.Message, store storage.Store, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case msg := <-updates:
			if err := store.Append(ctx, msg); err != nil {
				log.Error("Failed to record message",
					zap.Int("type", msg.TypeID),
					zap.Error(err))
				continue
			}

			log.Info("Recorded",
				zap.Int("type", msg.TypeID),
				zap.String("name", msg.Name()),
				zap.Int("fieldCount", len(msg.Fields)))
		}
	}
}
