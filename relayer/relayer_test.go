package relayer

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	tmclient "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
)

// fakeChain is an in-memory ChainHandle double used across this
// package's tests, in the spirit of the corpus's hand-written fixtures
// (fakes over mockgen). It keeps just enough state — one map per
// queryable resource — to drive a handshake through every state
// transition deterministically.
type fakeChain struct {
	chainID ChainID

	connections map[ConnectionID]*conntypes.ConnectionEnd
	clients     map[ClientID]IdentifiedClientState
	channels    map[string]*chantypes.Channel

	nextConnID int
	sendErr    error
}

func (f *fakeChain) newConnectionID() ConnectionID {
	f.nextConnID++
	return fmt.Sprintf("connection-%d", f.nextConnID)
}

func newFakeChain(chainID ChainID) *fakeChain {
	return &fakeChain{
		chainID:     chainID,
		connections: make(map[ConnectionID]*conntypes.ConnectionEnd),
		clients:     make(map[ClientID]IdentifiedClientState),
		channels:    make(map[string]*chantypes.Channel),
	}
}

func (f *fakeChain) ID() ChainID { return f.chainID }

func (f *fakeChain) QueryLatestHeight(ctx context.Context) (Height, error) {
	return clientHeight(1), nil
}

func clientHeight(n uint64) Height {
	return Height{RevisionNumber: 0, RevisionHeight: n}
}

func (f *fakeChain) QueryCommitmentPrefix(ctx context.Context) (commitmenttypes.MerklePrefix, error) {
	return commitmenttypes.NewMerklePrefix([]byte("ibc")), nil
}

func (f *fakeChain) QueryCompatibleVersions(ctx context.Context) ([]*conntypes.Version, error) {
	return conntypes.GetCompatibleVersions(), nil
}

func (f *fakeChain) QueryConnection(ctx context.Context, id ConnectionID, height Height) (*conntypes.ConnectionEnd, error) {
	end, ok := f.connections[id]
	if !ok {
		return nil, fmt.Errorf("connection %s not found on %s", id, f.chainID)
	}
	return end, nil
}

func (f *fakeChain) QueryConnections(ctx context.Context, pagination Pagination) ([]*conntypes.IdentifiedConnectionEnd, error) {
	var out []*conntypes.IdentifiedConnectionEnd
	for id, end := range f.connections {
		out = append(out, &conntypes.IdentifiedConnectionEnd{
			ConnectionId: id,
			ClientId:     end.ClientId,
			Counterparty: end.Counterparty,
			State:        end.State,
			Versions:     end.Versions,
			DelayPeriod:  end.DelayPeriod,
		})
	}
	return out, nil
}

func (f *fakeChain) QueryClientConnections(ctx context.Context, clientID ClientID) ([]ConnectionID, error) {
	var out []ConnectionID
	for id, end := range f.connections {
		if end.ClientId == clientID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeChain) QueryClientState(ctx context.Context, clientID ClientID, height Height) (IdentifiedClientState, error) {
	cs, ok := f.clients[clientID]
	if !ok {
		return IdentifiedClientState{}, fmt.Errorf("client %s not found on %s", clientID, f.chainID)
	}
	return cs, nil
}

func (f *fakeChain) QueryChannel(ctx context.Context, portID PortID, channelID ChannelID, height Height) (*chantypes.Channel, error) {
	ch, ok := f.channels[portID+"/"+channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s/%s not found on %s", portID, channelID, f.chainID)
	}
	return ch, nil
}

func (f *fakeChain) QueryConnectionChannels(ctx context.Context, connectionID ConnectionID, pagination Pagination) ([]*chantypes.IdentifiedChannel, error) {
	var out []*chantypes.IdentifiedChannel
	for key, ch := range f.channels {
		if len(ch.ConnectionHops) == 1 && ch.ConnectionHops[0] == connectionID {
			port, channel := splitChannelKey(key)
			out = append(out, &chantypes.IdentifiedChannel{
				State: ch.State, Ordering: ch.Ordering, Counterparty: ch.Counterparty,
				ConnectionHops: ch.ConnectionHops, Version: ch.Version, PortId: port, ChannelId: channel,
			})
		}
	}
	return out, nil
}

func splitChannelKey(key string) (port, channel string) {
	for i := range key {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func (f *fakeChain) BuildConnectionProofsAndClientState(ctx context.Context, msgType ConnectionMsgType, connectionID ConnectionID, clientID ClientID, height Height) (ibcexported.ClientState, Proofs, error) {
	cs := f.clients[clientID].ClientState
	return cs, Proofs{Height: height, ConsensusHeight: height}, nil
}

func (f *fakeChain) GetSigner(ctx context.Context) (sdk.AccAddress, error) {
	return sdk.AccAddress("relayer-signer-address"), nil
}

func (f *fakeChain) SendMsgs(ctx context.Context, msgs []Msg) ([]IBCEvent, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	var events []IBCEvent
	for _, m := range msgs {
		switch msg := m.(type) {
		case MsgUpdateClient:
			// no state to update on this fake.

		case MsgConnectionOpenInit:
			id := f.newConnectionID()
			f.connections[id] = &conntypes.ConnectionEnd{
				ClientId:     msg.ClientID,
				Counterparty: msg.Counterparty,
				State:        conntypes.INIT,
				Versions:     conntypes.GetCompatibleVersions(),
				DelayPeriod:  uint64(msg.DelayPeriod),
			}
			events = append(events, OpenInitConnectionEvent{connectionEventAttrs{
				ConnectionID: id, ClientID: msg.ClientID,
				CounterpartyClientID: msg.Counterparty.ClientId, CounterpartyConnectionID: msg.Counterparty.ConnectionId,
			}})

		case MsgConnectionOpenTry:
			id := msg.PreviousConnectionID
			if id == "" {
				id = f.newConnectionID()
			}
			f.connections[id] = &conntypes.ConnectionEnd{
				ClientId:     msg.ClientID,
				Counterparty: msg.Counterparty,
				State:        conntypes.TRYOPEN,
				Versions:     msg.CounterpartyVersions,
				DelayPeriod:  uint64(msg.DelayPeriod),
			}
			events = append(events, OpenTryConnectionEvent{connectionEventAttrs{
				ConnectionID: id, ClientID: msg.ClientID,
				CounterpartyClientID: msg.Counterparty.ClientId, CounterpartyConnectionID: msg.Counterparty.ConnectionId,
			}})

		case MsgConnectionOpenAck:
			end, ok := f.connections[msg.ConnectionID]
			if !ok {
				return nil, fmt.Errorf("connection %s not found on %s", msg.ConnectionID, f.chainID)
			}
			end.State = conntypes.OPEN
			end.Counterparty.ConnectionId = msg.CounterpartyConnectionID
			end.Versions = []*conntypes.Version{msg.Version}
			events = append(events, OpenAckConnectionEvent{connectionEventAttrs{
				ConnectionID: msg.ConnectionID, ClientID: end.ClientId,
				CounterpartyClientID: end.Counterparty.ClientId, CounterpartyConnectionID: msg.CounterpartyConnectionID,
			}})

		case MsgConnectionOpenConfirm:
			end, ok := f.connections[msg.ConnectionID]
			if !ok {
				return nil, fmt.Errorf("connection %s not found on %s", msg.ConnectionID, f.chainID)
			}
			end.State = conntypes.OPEN
			events = append(events, OpenConfirmConnectionEvent{connectionEventAttrs{
				ConnectionID: msg.ConnectionID, ClientID: end.ClientId,
				CounterpartyClientID: end.Counterparty.ClientId, CounterpartyConnectionID: end.Counterparty.ConnectionId,
			}})
		}
	}
	return events, nil
}

var _ ChainHandle = (*fakeChain)(nil)

// fakeForeignClient is a no-op ForeignClient: BuildUpdateClient never
// needs to produce anything meaningful for these tests, since fakeChain
// doesn't validate proof freshness.
type fakeForeignClient struct {
	id       ClientID
	src, dst ChainHandle
}

func (f fakeForeignClient) SrcChain() ChainHandle { return f.src }
func (f fakeForeignClient) DstChain() ChainHandle { return f.dst }
func (f fakeForeignClient) ID() ClientID          { return f.id }

func (f fakeForeignClient) BuildUpdateClient(ctx context.Context, targetHeight Height) ([]Msg, error) {
	return []Msg{MsgUpdateClient{ClientID: f.id, TargetHeight: targetHeight, Signer: "relayer"}}, nil
}

var _ ForeignClient = fakeForeignClient{}

// fakeTMClientState builds a minimal tendermint client state naming
// chainID, enough for chainIDFromClientState to extract it.
func fakeTMClientState(chainID ChainID) ibcexported.ClientState {
	return &tmclient.ClientState{ChainId: chainID}
}
