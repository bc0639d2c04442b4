package relayer

import (
	errorsmod "cosmossdk.io/errors"
)

// connectionCodespace groups every sentinel this package registers, the
// way ibc-go registers one codespace per ICS module.
const connectionCodespace = "connection"

// Sentinel errors, one per taxonomic name in the spec. Call sites wrap
// these with errorsmod.Wrapf to attach the failing chain id, connection
// id, or other context, matching how ibc-go and cosmos-sdk report errors
// throughout the dependency tree.
var (
	ErrRelayer                            = errorsmod.Register(connectionCodespace, 2, "relayer error")
	ErrMissingLocalConnectionID           = errorsmod.Register(connectionCodespace, 3, "missing local connection id")
	ErrMissingCounterpartyConnectionID    = errorsmod.Register(connectionCodespace, 4, "missing counterparty connection id")
	ErrMissingCounterpartyConnIDField     = errorsmod.Register(connectionCodespace, 5, "connection end has no counterparty connection id field")
	ErrChainQuery                         = errorsmod.Register(connectionCodespace, 6, "chain query failed")
	ErrConnectionQuery                    = errorsmod.Register(connectionCodespace, 7, "connection query failed")
	ErrClientOperation                    = errorsmod.Register(connectionCodespace, 8, "client operation failed")
	ErrSubmit                             = errorsmod.Register(connectionCodespace, 9, "transaction submission failed")
	ErrMaxDelayPeriod                     = errorsmod.Register(connectionCodespace, 10, "delay period exceeds maximum")
	ErrInvalidEvent                       = errorsmod.Register(connectionCodespace, 11, "event is missing required attributes")
	ErrTxResponse                         = errorsmod.Register(connectionCodespace, 12, "chain reported a transaction error")
	ErrConnectionClientIDMismatch         = errorsmod.Register(connectionCodespace, 13, "connection client id mismatch")
	ErrChainIDMismatch                    = errorsmod.Register(connectionCodespace, 14, "chain id mismatch between paired clients")
	ErrConnectionNotOpen                  = errorsmod.Register(connectionCodespace, 15, "connection end is not open")
	ErrMaxRetry                           = errorsmod.Register(connectionCodespace, 16, "handshake did not complete within the retry budget")
	ErrSupervisor                         = errorsmod.Register(connectionCodespace, 17, "counterparty introspection failed")
	ErrMissingConnectionID                = errorsmod.Register(connectionCodespace, 18, "connection end does not exist yet on the destination chain")
	ErrSigner                             = errorsmod.Register(connectionCodespace, 19, "failed to acquire signer")
	ErrMissingConnectionIDFromEvent       = errorsmod.Register(connectionCodespace, 20, "could not extract connection id from event")
	ErrMissingConnectionInitEvent         = errorsmod.Register(connectionCodespace, 21, "no connection init event in response")
	ErrMissingConnectionTryEvent          = errorsmod.Register(connectionCodespace, 22, "no connection try event in response")
	ErrMissingConnectionAckEvent          = errorsmod.Register(connectionCodespace, 23, "no connection ack event in response")
	ErrMissingConnectionConfirmEvent      = errorsmod.Register(connectionCodespace, 24, "no connection confirm event in response")
	ErrConnectionProof                    = errorsmod.Register(connectionCodespace, 25, "failed to build connection proofs")
	ErrConnectionAlreadyExist             = errorsmod.Register(connectionCodespace, 26, "an incompatible connection already exists on the destination chain")
	ErrChannelUninitialized               = errorsmod.Register(connectionCodespace, 27, "channel is uninitialized")
	ErrMissingConnectionHops              = errorsmod.Register(connectionCodespace, 28, "channel does not have exactly one connection hop")
	ErrMismatchChannelEnds                = errorsmod.Register(connectionCodespace, 29, "channel counterparty does not match the expected end")
	ErrIncompleteChannelState             = errorsmod.Register(connectionCodespace, 30, "channel reports no counterparty channel id")
)
