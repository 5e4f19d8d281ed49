// Package continuation holds the per message type field parsers used by the
// decoder.
//
// A message's body length is not carried on the wire. Each message type
// instead has a Continuation: a resumable parser that tells the decoder how
// many fields it wants next, inspects them once they arrive, and eventually
// hands back the complete field tuple. Most types want a fixed number of
// fields. Some carry a repeated group whose element count is itself a field,
// so the parser can only size the group after reading that field.
//
// Parsers are written as programs of Segments rather than code. A Segment
// asks for a fixed head, may extend itself by a count computed from that
// head, and may open nested segments when a gate on the head holds.
package continuation
