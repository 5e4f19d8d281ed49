package protocol

import (
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	ErrInvalidJSON = errors.New("Message JSON is malformed")
)

type Marshaler interface {
	Marshal() ([]byte, error)
}

type Unmarshaler interface {
	Unmarshal(data []byte) error
}

type Marshalable interface {
	Marshaler
	Unmarshaler
}

// Message is a complete inbound message. Fields holds the whole tuple in
// wire order, header included.
type Message struct {
	TypeID  int
	Version int
	Fields  []string
}

// NewMessage builds a Message from a complete field tuple.
func NewMessage(fields []string) (*Message, error) {
	typeID, version, err := ParseHeader(fields)
	if err != nil {
		return nil, err
	}

	return &Message{TypeID: typeID, Version: version, Fields: fields}, nil
}

// Name is the protocol name of the message type, or "Unknown".
func (m *Message) Name() string {
	return MessageName(m.TypeID)
}

// Body returns the fields following the header.
func (m *Message) Body() []string {
	if len(m.Fields) < HeaderFieldCount {
		return nil
	}

	return m.Fields[HeaderFieldCount:]
}

// Encode returns the broadcast framing of the message.
func (m *Message) Encode() []byte {
	return EncodeFields(m.Fields...)
}

// Marshal encodes the message as JSON:
//
//	{"type":1,"name":"TICK_PRICE","version":2,"fields":["1","2","100.5",...]}
func (m *Message) Marshal() ([]byte, error) {
	var (
		b   = []byte(`{}`)
		err error
	)

	if b, err = sjson.SetBytes(b, "type", m.TypeID); err != nil {
		return nil, err
	}

	if b, err = sjson.SetBytes(b, "name", m.Name()); err != nil {
		return nil, err
	}

	if b, err = sjson.SetBytes(b, "version", m.Version); err != nil {
		return nil, err
	}

	fields := m.Fields
	if fields == nil {
		fields = []string{}
	}

	return sjson.SetBytes(b, "fields", fields)
}

func (m *Message) Unmarshal(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrInvalidJSON
	}

	result := gjson.ParseBytes(data)

	m.TypeID = int(result.Get("type").Int())
	m.Version = int(result.Get("version").Int())
	m.Fields = m.Fields[:0]

	for _, f := range result.Get("fields").Array() {
		m.Fields = append(m.Fields, f.String())
	}

	return nil
}

var _ Marshalable = (*Message)(nil)
