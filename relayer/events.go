package relayer

import (
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
)

// IBCEvent is one event a chain emitted while processing a submitted
// transaction. Only the event kind and the handshake-relevant attributes
// are modeled — this package recognises events by name, ignoring any
// other payload, per spec.md §6.
type IBCEvent interface {
	EventType() string
}

// connectionEventAttrs carries the attributes every Open*Connection event
// shares: the newly (or previously) assigned identifiers on both sides.
// The event does not carry the delay period (see RestoreConnectionFromEvent).
type connectionEventAttrs struct {
	ConnectionID             ConnectionID
	ClientID                 ClientID
	CounterpartyConnectionID ConnectionID
	CounterpartyClientID     ClientID
}

type OpenInitConnectionEvent struct{ connectionEventAttrs }

func (OpenInitConnectionEvent) EventType() string { return conntypes.EventTypeConnectionOpenInit }

type OpenTryConnectionEvent struct{ connectionEventAttrs }

func (OpenTryConnectionEvent) EventType() string { return conntypes.EventTypeConnectionOpenTry }

type OpenAckConnectionEvent struct{ connectionEventAttrs }

func (OpenAckConnectionEvent) EventType() string { return conntypes.EventTypeConnectionOpenAck }

type OpenConfirmConnectionEvent struct{ connectionEventAttrs }

func (OpenConfirmConnectionEvent) EventType() string { return conntypes.EventTypeConnectionOpenConfirm }

// ChainErrorEvent is emitted when a submitted transaction failed on-chain;
// Reason carries the chain-reported cause.
type ChainErrorEvent struct {
	Reason string
}

func (ChainErrorEvent) EventType() string { return "chain_error" }

// extractConnectionID pulls the connection id a handshake event assigned,
// for whichever of the four Open*Connection events it is.
func extractConnectionID(event IBCEvent) (ConnectionID, error) {
	var id ConnectionID
	switch e := event.(type) {
	case OpenInitConnectionEvent:
		id = e.ConnectionID
	case OpenTryConnectionEvent:
		id = e.ConnectionID
	case OpenAckConnectionEvent:
		id = e.ConnectionID
	case OpenConfirmConnectionEvent:
		id = e.ConnectionID
	default:
		return "", ErrMissingConnectionIDFromEvent
	}
	if id == "" {
		return "", ErrMissingConnectionIDFromEvent
	}
	return id, nil
}

// connectionAttrs extracts the shared attribute set from whichever
// Open*Connection event was observed, used by RestoreConnectionFromEvent.
func connectionAttrs(event IBCEvent) (connectionEventAttrs, bool) {
	switch e := event.(type) {
	case OpenInitConnectionEvent:
		return e.connectionEventAttrs, true
	case OpenTryConnectionEvent:
		return e.connectionEventAttrs, true
	case OpenAckConnectionEvent:
		return e.connectionEventAttrs, true
	case OpenConfirmConnectionEvent:
		return e.connectionEventAttrs, true
	default:
		return connectionEventAttrs{}, false
	}
}
