package payment

import (
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// State is a state of the payment confirmation machine
type State string

const (
	StateIdle                  State = "idle"
	StateCreatingIntent        State = "creating_intent"
	StateAwaitingCardInput     State = "awaiting_card_input"
	StateVerifying             State = "verifying"
	StateProcessing            State = "processing"
	StateRequiresPaymentMethod State = "requires_payment_method"
	StateSucceeded             State = "succeeded"
	StateFailed                State = "failed"
	StateConfirming            State = "confirming"
)

// IsTerminal reports whether the state accepts no further events
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Event drives a transition
type Event string

const (
	// card path
	EventStartCard         Event = "start_card"
	EventIntentCreated     Event = "intent_created"
	EventIntentFailed      Event = "intent_failed"
	EventRedirectReturned  Event = "redirect_returned"
	EventGatewaySucceeded  Event = "gateway_succeeded"
	EventGatewayProcessing Event = "gateway_processing"
	EventGatewayNeedsCard  Event = "gateway_requires_payment_method"
	EventGatewayFailed     Event = "gateway_failed"
	EventCardDeclined      Event = "card_declined"
	EventRetryCard         Event = "retry_card"

	// cash on delivery
	EventConfirmCOD   Event = "confirm_cod"
	EventCODConfirmed Event = "cod_confirmed"
	EventCODFailed    Event = "cod_failed"
)

type transitionKey struct {
	from  State
	event Event
}

// transitions is the complete table; anything missing is rejected.
// requires_payment_method reaches succeeded only through verifying.
var transitions = map[transitionKey]State{
	{StateIdle, EventStartCard}:                     StateCreatingIntent,
	{StateCreatingIntent, EventIntentCreated}:       StateAwaitingCardInput,
	{StateCreatingIntent, EventIntentFailed}:        StateIdle,
	{StateAwaitingCardInput, EventRedirectReturned}: StateVerifying,
	{StateAwaitingCardInput, EventCardDeclined}:     StateAwaitingCardInput,
	// the browser reloads on return, so verification may start from a fresh machine
	{StateIdle, EventRedirectReturned}:                  StateVerifying,
	{StateProcessing, EventRedirectReturned}:            StateVerifying,
	{StateVerifying, EventRedirectReturned}:             StateVerifying,
	{StateVerifying, EventGatewaySucceeded}:             StateSucceeded,
	{StateVerifying, EventGatewayProcessing}:            StateProcessing,
	{StateVerifying, EventGatewayNeedsCard}:             StateRequiresPaymentMethod,
	{StateVerifying, EventGatewayFailed}:                StateFailed,
	{StateVerifying, EventCardDeclined}:                 StateAwaitingCardInput,
	{StateRequiresPaymentMethod, EventRetryCard}:        StateAwaitingCardInput,
	{StateRequiresPaymentMethod, EventRedirectReturned}: StateVerifying,

	{StateIdle, EventConfirmCOD}:         StateConfirming,
	{StateConfirming, EventCODConfirmed}: StateSucceeded,
	{StateConfirming, EventCODFailed}:    StateFailed,
}

// Transition is the pure transition function
func Transition(from State, event Event) (State, error) {
	if from.IsTerminal() {
		return from, &errors.ErrInvalidStateTransition{From: string(from), To: string(event)}
	}
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		return from, &errors.ErrInvalidStateTransition{From: string(from), To: string(event)}
	}
	return to, nil
}

// Machine tracks one confirmation attempt. It is not safe for concurrent use.
type Machine struct {
	state   State
	history []State
}

// NewMachine starts a machine in idle
func NewMachine() *Machine {
	return &Machine{state: StateIdle, history: []State{StateIdle}}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// History returns every state the machine has been in, oldest first
func (m *Machine) History() []State {
	return append([]State(nil), m.history...)
}

// Fire applies an event. Succeeded and failed are sticky.
func (m *Machine) Fire(event Event) error {
	next, err := Transition(m.state, event)
	if err != nil {
		return err
	}
	m.state = next
	m.history = append(m.history, next)
	return nil
}

// GatewayStatus values reported by the payment gateway
const (
	GatewayStatusSucceeded             = "succeeded"
	GatewayStatusProcessing            = "processing"
	GatewayStatusRequiresPaymentMethod = "requires_payment_method"
)

// EventForGatewayStatus maps a gateway status to the machine event.
// Any status other than the three known ones is a failure.
func EventForGatewayStatus(status string) Event {
	switch status {
	case GatewayStatusSucceeded:
		return EventGatewaySucceeded
	case GatewayStatusProcessing:
		return EventGatewayProcessing
	case GatewayStatusRequiresPaymentMethod:
		return EventGatewayNeedsCard
	default:
		return EventGatewayFailed
	}
}
