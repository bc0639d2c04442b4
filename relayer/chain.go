package relayer

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	ics23 "github.com/cosmos/ics23/go"

	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
)

// ConnectionMsgType enumerates the proof-carrying ICS-003 messages, used
// to select the right expected-state when building and validating
// connection proofs.
type ConnectionMsgType int

const (
	MsgTry ConnectionMsgType = iota
	MsgAck
	MsgConfirm
)

func (t ConnectionMsgType) String() string {
	switch t {
	case MsgTry:
		return "OpenTry"
	case MsgAck:
		return "OpenAck"
	case MsgConfirm:
		return "OpenConfirm"
	default:
		return "unknown"
	}
}

// Pagination mirrors the pagination parameters ibc-go's gRPC queries
// accept; the chain handle abstracts away the actual request/response
// wire types (see SPEC_FULL.md §3).
type Pagination struct {
	Limit  uint64
	Offset uint64
}

// AllPages requests every page of results in one logical call; a chain
// handle implementation decides how many round trips that costs.
var AllPages = Pagination{Limit: 0}

// Proofs bundles the Merkle proofs and proof height a chain produces for
// a pending connection handshake step. The proof objects themselves use
// ics23's structured commitment proof type rather than opaque bytes,
// since unmarshaling the wire encoding is this repository's business
// even though verifying the proof is not (spec.md §1 Non-goals).
type Proofs struct {
	Height          Height
	ConnectionProof *ics23.CommitmentProof
	ClientProof     *ics23.CommitmentProof
	ConsensusProof  *ics23.CommitmentProof
	ConsensusHeight Height
}

// IdentifiedClientState pairs a client id with the client state it names.
// ibc-go's own IdentifiedClientState stores the state packed in
// codectypes.Any; unpacking that is a wire-encoding detail this spec
// excludes, so the state here is already the unpacked interface value.
type IdentifiedClientState struct {
	ClientID    ClientID
	ClientState ibcexported.ClientState
}

// ChainHandle is the abstraction over a remote ledger every component in
// this package is built against. Every method is a blocking request or
// submission; a concrete implementation may multiplex calls over gRPC,
// but from the caller's perspective each call here is synchronous
// (spec.md §5).
type ChainHandle interface {
	// ID returns the identifier of the chain this handle talks to.
	ID() ChainID

	QueryLatestHeight(ctx context.Context) (Height, error)
	QueryCommitmentPrefix(ctx context.Context) (commitmenttypes.MerklePrefix, error)
	QueryCompatibleVersions(ctx context.Context) ([]*conntypes.Version, error)

	QueryConnection(ctx context.Context, id ConnectionID, height Height) (*conntypes.ConnectionEnd, error)
	QueryConnections(ctx context.Context, pagination Pagination) ([]*conntypes.IdentifiedConnectionEnd, error)
	QueryClientConnections(ctx context.Context, clientID ClientID) ([]ConnectionID, error)

	QueryClientState(ctx context.Context, clientID ClientID, height Height) (IdentifiedClientState, error)

	QueryChannel(ctx context.Context, portID PortID, channelID ChannelID, height Height) (*chantypes.Channel, error)
	QueryConnectionChannels(ctx context.Context, connectionID ConnectionID, pagination Pagination) ([]*chantypes.IdentifiedChannel, error)

	// BuildConnectionProofsAndClientState queries the proofs and, where
	// applicable, the client state needed to submit msgType on the
	// counterparty chain for the connection identified by connectionID.
	BuildConnectionProofsAndClientState(ctx context.Context, msgType ConnectionMsgType, connectionID ConnectionID, clientID ClientID, height Height) (ibcexported.ClientState, Proofs, error)

	GetSigner(ctx context.Context) (sdk.AccAddress, error)

	// SendMsgs submits a batch of opaque messages in one transaction and
	// returns every event the chain emitted while processing it.
	SendMsgs(ctx context.Context, msgs []Msg) ([]IBCEvent, error)
}
