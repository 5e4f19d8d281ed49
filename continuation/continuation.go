package continuation

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrFinished        = errors.New("continuation has already finished")
	ErrUnexpectedChunk = errors.New("chunk size does not match the requested field count")
	ErrEmptyProgram    = errors.New("program has no segments")
	ErrInvalidCount    = errors.New("gating field is not a valid count")
	ErrGateOutOfRange  = errors.New("gating field index is outside the segment head")
)

// Step is the outcome of advancing a continuation: either a request for
// Count more fields, or Done with the complete field tuple.
type Step struct {
	Count  int
	Done   bool
	Fields []string
}

// Request asks the decoder for n more fields.
func Request(n int) Step {
	return Step{Count: n}
}

// Finish completes a continuation with the final field tuple.
func Finish(fields []string) Step {
	return Step{Done: true, Fields: fields}
}

// Continuation is a resumable parser for one message. The first call to Next
// is made with a nil chunk and must return a Request; every later call passes
// exactly the number of fields the previous step requested.
type Continuation interface {
	Next(chunk []string) (Step, error)
}

// Constructor builds a continuation for one message instance.
type Constructor func(typeID, version int) Continuation

// Segment is one block of a message body.
type Segment struct {
	// Count fields are always read for the segment.
	Count int

	// Extend, when set, computes how many extension fields follow the head.
	Extend func(head []string) (int, error)

	// When gates the nested Then segments. They are read after any extension
	// fields.
	When func(head []string) (bool, error)
	Then []Segment
}

type task struct {
	segment *Segment
	count   int
}

// program runs a list of segments. The header fields are prepended to the
// final tuple.
type program struct {
	header  []string
	fields  []string
	pending []task
	current *task
	done    bool
}

// Program returns a constructor that runs segments in order.
func Program(segments ...Segment) Constructor {
	if len(segments) == 0 {
		panic(ErrEmptyProgram)
	}

	return func(typeID, version int) Continuation {
		p := &program{
			header:  []string{strconv.Itoa(typeID), strconv.Itoa(version)},
			pending: make([]task, 0, len(segments)),
		}

		for i := range segments {
			p.pending = append(p.pending, task{segment: &segments[i], count: segments[i].Count})
		}

		return p
	}
}

func (p *program) Next(chunk []string) (Step, error) {
	if p.done {
		return Step{}, ErrFinished
	}

	if p.current != nil {
		if len(chunk) != p.current.count {
			return Step{}, fmt.Errorf("%w: wanted %d got %d", ErrUnexpectedChunk, p.current.count, len(chunk))
		}

		p.fields = append(p.fields, chunk...)

		if p.current.segment != nil {
			if err := p.expand(p.current.segment, chunk); err != nil {
				return Step{}, err
			}
		}
	}

	if len(p.pending) == 0 {
		p.current = nil
		p.done = true

		tuple := make([]string, 0, len(p.header)+len(p.fields))
		tuple = append(tuple, p.header...)
		tuple = append(tuple, p.fields...)

		return Finish(tuple), nil
	}

	next := p.pending[0]
	p.pending = p.pending[1:]
	p.current = &next

	return Request(next.count), nil
}

// expand queues the extension fields and nested segments unlocked by a
// segment's head, ahead of the remaining segments.
func (p *program) expand(s *Segment, head []string) error {
	var queued []task

	if s.Extend != nil {
		n, err := s.Extend(head)
		if err != nil {
			return err
		}

		if n > 0 {
			queued = append(queued, task{count: n})
		}
	}

	if s.When != nil && len(s.Then) > 0 {
		ok, err := s.When(head)
		if err != nil {
			return err
		}

		if ok {
			for i := range s.Then {
				queued = append(queued, task{segment: &s.Then[i], count: s.Then[i].Count})
			}
		}
	}

	if len(queued) > 0 {
		p.pending = append(queued, p.pending...)
	}

	return nil
}
