package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	// FileSection is the top level key of the config file.
	FileSection = "ibzmq"
)

var (
	ErrMissingKey  = errors.New("required config key is missing")
	ErrUnknownKey  = errors.New("unknown config key")
	ErrInvalidPort = errors.New("port is out of range")
)

type Config struct {
	TWSHost       string `env:"IBZMQ_TWS_HOST,default=127.0.0.1"`
	TWSPort       int    `env:"IBZMQ_TWS_PORT,default=7496"`
	ClientID      int    `env:"IBZMQ_CLIENT_ID,default=0"`
	ClientVersion int    `env:"IBZMQ_CLIENT_VERSION,default=59"`

	NATSURL          string `env:"IBZMQ_NATS_URL,default=nats://127.0.0.1:4222"`
	CommandSubject   string `env:"IBZMQ_COMMAND_SUBJECT,default=ibzmq.command"`
	CommandQueue     string `env:"IBZMQ_COMMAND_QUEUE,default=ibzmq"`
	BroadcastSubject string `env:"IBZMQ_BROADCAST_SUBJECT,default=ibzmq.broadcast"`

	KafkaBrokers []string `env:"IBZMQ_KAFKA_BROKERS"`
	KafkaTopic   string   `env:"IBZMQ_KAFKA_TOPIC,default=ib-messages"`

	RedisAddr   string `env:"IBZMQ_REDIS_ADDR,default=127.0.0.1:6379"`
	RedisKey    string `env:"IBZMQ_REDIS_KEY,default=ibzmq:messages"`
	RedisMaxLen int64  `env:"IBZMQ_REDIS_MAX_LEN,default=100000"`

	HTTPHost  string `env:"IBZMQ_HTTP_HOST,default=0.0.0.0"`
	HTTPPort  int    `env:"IBZMQ_HTTP_PORT,default=7362"`
	DebugHTTP bool   `env:"IBZMQ_DEBUG_HTTP"`

	ReconnectAttempts int           `env:"IBZMQ_RECONNECT_ATTEMPTS,default=5"`
	ReconnectBackoff  time.Duration `env:"IBZMQ_RECONNECT_BACKOFF,default=500ms"`
	CommandTimeout    time.Duration `env:"IBZMQ_COMMAND_TIMEOUT,default=5s"`

	LogLevel string `env:"IBZMQ_LOG_LEVEL,default=info"`
}

// LoadConfig reads .env.local if present, then the environment, then the
// config file at path if one is given. File values win.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		if err := config.ApplyFile(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

type setter func(c *Config, value string) error

func stringKey(field func(c *Config) *string) setter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

func intKey(field func(c *Config) *int) setter {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		*field(c) = n
		return nil
	}
}

// fileKeys maps the dotted keys of the config file onto Config.
var fileKeys = map[string]setter{
	"ibtws.host":      stringKey(func(c *Config) *string { return &c.TWSHost }),
	"ibtws.port":      intKey(func(c *Config) *int { return &c.TWSPort }),
	"ibtws.client_id": intKey(func(c *Config) *int { return &c.ClientID }),

	"endpoint.command":   stringKey(func(c *Config) *string { return &c.CommandSubject }),
	"endpoint.broadcast": stringKey(func(c *Config) *string { return &c.BroadcastSubject }),
	"endpoint.queue":     stringKey(func(c *Config) *string { return &c.CommandQueue }),

	"nats.url": stringKey(func(c *Config) *string { return &c.NATSURL }),

	"kafka.brokers": func(c *Config, value string) error {
		c.KafkaBrokers = splitList(value)
		return nil
	},
	"kafka.topic": stringKey(func(c *Config) *string { return &c.KafkaTopic }),

	"redis.addr": stringKey(func(c *Config) *string { return &c.RedisAddr }),
	"redis.key":  stringKey(func(c *Config) *string { return &c.RedisKey }),
	"redis.max_len": func(c *Config, value string) error {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}

		c.RedisMaxLen = n
		return nil
	},

	"http.host": stringKey(func(c *Config) *string { return &c.HTTPHost }),
	"http.port": intKey(func(c *Config) *int { return &c.HTTPPort }),

	"log.level": stringKey(func(c *Config) *string { return &c.LogLevel }),
}

// ApplyFile overlays the ibzmq section of a YAML config file:
//
//	ibzmq:
//	  ibtws.host: 127.0.0.1
//	  ibtws.port: 7496
//	  endpoint.command: ibzmq.command
//	  endpoint.broadcast: ibzmq.broadcast
func (c *Config) ApplyFile(data []byte) (err error) {
	var file map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	section, ok := file[FileSection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingKey, FileSection)
	}

	for key, raw := range section {
		set, ok := fileKeys[key]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrUnknownKey, key))
			continue
		}

		if serr := set(c, fileValue(raw)); serr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", key, serr))
		}
	}

	return err
}

// Validate reports every missing or invalid required value at once.
func (c *Config) Validate() (err error) {
	if c.TWSHost == "" {
		err = multierr.Append(err, fmt.Errorf("%w: ibtws.host", ErrMissingKey))
	}

	if c.TWSPort <= 0 || c.TWSPort > 65535 {
		err = multierr.Append(err, fmt.Errorf("%w: ibtws.port %d", ErrInvalidPort, c.TWSPort))
	}

	if c.CommandSubject == "" {
		err = multierr.Append(err, fmt.Errorf("%w: endpoint.command", ErrMissingKey))
	}

	if c.BroadcastSubject == "" {
		err = multierr.Append(err, fmt.Errorf("%w: endpoint.broadcast", ErrMissingKey))
	}

	return err
}

func fileValue(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""

	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}

		return strings.Join(items, ",")

	default:
		return fmt.Sprint(v)
	}
}

func splitList(value string) []string {
	var items []string

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
