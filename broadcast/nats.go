package broadcast

import (
	"context"
	"strconv"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/luma/ibzmq/protocol"
)

const (
	HeaderMessageType = "Ib-Message-Type"
	HeaderMessageName = "Ib-Message-Name"
)

// MsgPublisher is the part of a NATS connection NATSPublisher needs.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes each message's wire framing on a subject. The type
// id and name travel as headers so subscribers can filter without decoding.
type NATSPublisher struct {
	conn    MsgPublisher
	subject string
	log     *zap.Logger
}

func NewNATSPublisher(conn MsgPublisher, subject string, log *zap.Logger) *NATSPublisher {
	if log == nil {
		log = zap.NewNop()
	}

	return &NATSPublisher{conn: conn, subject: subject, log: log}
}

func (n *NATSPublisher) Publish(ctx context.Context, msg *protocol.Message) error {
	m := nats.NewMsg(n.subject)
	m.Header.Set(HeaderMessageType, strconv.Itoa(msg.TypeID))
	m.Header.Set(HeaderMessageName, msg.Name())
	m.Data = msg.Encode()

	if err := n.conn.PublishMsg(m); err != nil {
		return err
	}

	n.log.Debug("Published",
		zap.String("subject", n.subject),
		zap.Int("type", msg.TypeID))

	return nil
}

var _ Publisher = (*NATSPublisher)(nil)
