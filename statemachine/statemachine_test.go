package statemachine_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/ibzmq/statemachine"
)

const (
	connecting   statemachine.Kind = "Connecting"
	connected    statemachine.Kind = "Connected"
	waiting      statemachine.Kind = "Waiting"
	disconnected statemachine.Kind = "Disconnected"
)

type simple statemachine.Kind

func (s simple) Kind() statemachine.Kind { return statemachine.Kind(s) }

type waitingState struct {
	message string
}

func (waitingState) Kind() statemachine.Kind { return waiting }

var allKinds = []statemachine.Kind{connecting, connected, waiting, disconnected}

var transitions = map[statemachine.Kind][]statemachine.Kind{
	connecting: {connected},
	connected:  {waiting},
	waiting:    {waiting, disconnected},
}

func makeMachine() *statemachine.Machine {
	table, err := statemachine.NewTable(allKinds, transitions)
	Expect(err).To(Succeed())

	m, err := statemachine.NewMachine(table, simple(connecting))
	Expect(err).To(Succeed())

	return m
}

func stateOf(k statemachine.Kind) statemachine.State {
	if k == waiting {
		return waitingState{message: "message"}
	}
	return simple(k)
}

var _ = Describe("statemachine", func() {
	Describe("NewTable()", func() {
		It("rejects an empty kind set", func() {
			_, err := statemachine.NewTable(nil, transitions)
			Expect(err).To(MatchError(statemachine.ErrEmptyKinds))
		})

		It("rejects an empty transition map", func() {
			_, err := statemachine.NewTable(allKinds, nil)
			Expect(err).To(MatchError(statemachine.ErrEmptyTransitions))
		})

		It("rejects transitions naming unknown kinds", func() {
			_, err := statemachine.NewTable(allKinds, map[statemachine.Kind][]statemachine.Kind{
				connecting: {"Elsewhere"},
			})
			Expect(errors.Is(err, statemachine.ErrUnknownKind)).To(BeTrue())
		})

		It("panics from MustNewTable when malformed", func() {
			Expect(func() { statemachine.MustNewTable(nil, nil) }).To(Panic())
		})
	})

	Describe("NewMachine()", func() {
		It("requires the initial state to be a known kind", func() {
			table := statemachine.MustNewTable(allKinds, transitions)
			_, err := statemachine.NewMachine(table, simple("Elsewhere"))
			Expect(errors.Is(err, statemachine.ErrUnknownKind)).To(BeTrue())
		})
	})

	Describe("Transition()", func() {
		It("follows a legal path", func() {
			m := makeMachine()
			Expect(m.State()).To(Equal(simple(connecting)))

			Expect(m.Transition(simple(connected))).To(Succeed())
			Expect(m.State()).To(Equal(simple(connected)))

			Expect(m.Transition(waitingState{message: "message"})).To(Succeed())
			Expect(m.State()).To(Equal(waitingState{message: "message"}))

			Expect(m.Transition(waitingState{message: "message2"})).To(Succeed())
			Expect(m.State()).To(Equal(waitingState{message: "message2"}))

			Expect(m.Transition(simple(disconnected))).To(Succeed())
			Expect(m.State()).To(Equal(simple(disconnected)))
		})

		It("rejects illegal moves and keeps the current state", func() {
			m := makeMachine()

			err := m.Transition(simple(disconnected))
			Expect(errors.Is(err, statemachine.ErrInvalidTransition)).To(BeTrue())

			var invalid *statemachine.InvalidTransitionError
			Expect(errors.As(err, &invalid)).To(BeTrue())
			Expect(invalid.From).To(Equal(connecting))
			Expect(invalid.To).To(Equal(disconnected))

			Expect(m.State()).To(Equal(simple(connecting)))
		})

		It("agrees with the table for every pair of kinds", func() {
			table := statemachine.MustNewTable(allKinds, transitions)

			for _, from := range allKinds {
				for _, to := range allKinds {
					m, err := statemachine.NewMachine(table, stateOf(from))
					Expect(err).To(Succeed())

					err = m.Transition(stateOf(to))
					if table.Allows(from, to) {
						Expect(err).To(Succeed())
						Expect(m.State()).To(Equal(stateOf(to)))
					} else {
						Expect(err).To(MatchError(statemachine.ErrInvalidTransition))
						Expect(m.State()).To(Equal(stateOf(from)))
					}
				}
			}
		})
	})

	Describe("IsState() / StateName()", func() {
		It("reports the active kind", func() {
			m := makeMachine()
			Expect(m.IsState(connecting)).To(BeTrue())
			Expect(m.StateName()).To(Equal("Connecting"))

			Expect(m.Transition(simple(connected))).To(Succeed())
			Expect(m.IsState(connected)).To(BeTrue())
			Expect(m.IsState(connecting)).To(BeFalse())
		})
	})
})
