// Package protocol implements framing for the trading gateway's session
// protocol and for the frames the proxy exchanges with its bus clients.
//
// # Gateway session protocol
//
// Everything on the wire is a field: an ASCII string terminated by a single
// NUL byte. There is no length prefix and no message terminator; the reader
// has to know how many fields each message carries.
//
//   - On connect the client writes its protocol version as one field.
//   - The gateway answers with two fields, serverVersion and connectionTime.
//   - The client writes its client id as one field.
//   - From then on every inbound message starts with a two field header,
//     messageTypeId and version, both decimal integers, followed by a flat
//     run of body fields. How many body fields follow depends on the message
//     type and, for some types, on values read earlier in the same message
//     (see package continuation).
//
// For example, a tick price message (type 1, version 2), with spaces added
// for readability only:
//
//	1\0 2\0 100.5\0 101.0\0 10\0 20\0 1\0
//
// # Broadcast messages
//
// Every completed inbound message is republished as one bus message: the
// header and body fields joined by NUL with a trailing NUL. A subscriber
// never observes part of a message.
//
// # Command frames
//
// Bus clients send commands through a request/reply channel. A command
// payload is either an out-of-band control frame, OOB\0<verb>, or anything
// else, which is written verbatim to the gateway connection. Only the NOP
// verb is understood and it is used as a liveness check. The reply is the
// literal text OK or ERR.
//
//	> OOB\0NOP
//	< OK
//
//	> 49\0 1\0
//	< OK
//
// The second exchange forwards a REQ_CURRENT_TIME request to the gateway;
// the answer arrives later on the broadcast bus as a CURRENT_TIME message.
package protocol
