package relayer

import (
	"time"

	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
)

// Msg is an opaque handshake message destined for a chain's SendMsgs.
// ibc-go's real connection messages are proto-generated and carry their
// payload packed in codectypes.Any; reproducing that shape exactly would
// mean reimplementing wire encoding, which spec.md §1 names as a
// non-goal. These local structs carry the same semantic fields using the
// real ibc-go domain types (Counterparty, Version, Proofs), so every
// field the handshake cares about is still the genuine protocol value —
// only the envelope is local.
type Msg interface {
	isConnectionMsg()
}

// MsgUpdateClient asks the destination chain to update its light client
// of the counterparty up to (at least) TargetHeight.
type MsgUpdateClient struct {
	ClientID     ClientID
	TargetHeight Height
	Signer       string
}

func (MsgUpdateClient) isConnectionMsg() {}

type MsgConnectionOpenInit struct {
	ClientID     ClientID
	Counterparty conntypes.Counterparty
	Version      *conntypes.Version
	DelayPeriod  time.Duration
	Signer       string
}

func (MsgConnectionOpenInit) isConnectionMsg() {}

type MsgConnectionOpenTry struct {
	// PreviousConnectionID is set when the destination chain already has
	// a connection end assigned for this handshake (a crossing-hellos
	// race, or a previously observed Init on this side).
	PreviousConnectionID ConnectionID
	ClientID              ClientID
	ClientState           ibcexported.ClientState
	Counterparty          conntypes.Counterparty
	CounterpartyVersions  []*conntypes.Version
	DelayPeriod           time.Duration
	Proofs                Proofs
	Signer                string
}

func (MsgConnectionOpenTry) isConnectionMsg() {}

type MsgConnectionOpenAck struct {
	ConnectionID             ConnectionID
	CounterpartyConnectionID ConnectionID
	ClientState              ibcexported.ClientState
	Version                  *conntypes.Version
	Proofs                   Proofs
	Signer                   string
}

func (MsgConnectionOpenAck) isConnectionMsg() {}

type MsgConnectionOpenConfirm struct {
	ConnectionID ConnectionID
	Proofs       Proofs
	Signer       string
}

func (MsgConnectionOpenConfirm) isConnectionMsg() {}
