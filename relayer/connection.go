package relayer

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	retry "github.com/avast/retry-go/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MaxPacketDelay is the upper bound on the delay period of any
// connection this relayer establishes.
const MaxPacketDelay = 120 * time.Second

// MaxRetries bounds every handshake phase.
const MaxRetries = 5

// ConnectionSide is one side of an in-progress connection handshake. The
// connection id starts absent and is assigned exactly once, when this
// engine observes the corresponding Init (a_side) or Try (b_side) event.
type ConnectionSide struct {
	Chain        ChainHandle
	ClientID     ClientID
	connectionID ConnectionID
}

// NewConnectionSide builds a side with an optionally-known connection id.
// An empty connectionID means "not yet assigned".
func NewConnectionSide(chain ChainHandle, clientID ClientID, connectionID ConnectionID) ConnectionSide {
	return ConnectionSide{Chain: chain, ClientID: clientID, connectionID: connectionID}
}

// ConnectionID returns the assigned connection id, if any.
func (s ConnectionSide) ConnectionID() (ConnectionID, bool) {
	if s.connectionID == "" {
		return "", false
	}
	return s.connectionID, true
}

// MarshalYAML renders a ConnectionSide the way an operator inspects it:
// only the client id and (if known) the connection id, never the chain
// handle (spec.md §6 Serialisation).
func (s ConnectionSide) MarshalYAML() (interface{}, error) {
	out := struct {
		ClientID     string `yaml:"client_id"`
		ConnectionID string `yaml:"connection_id,omitempty"`
	}{ClientID: s.ClientID}
	if id, ok := s.ConnectionID(); ok {
		out.ConnectionID = id
	}
	return out, nil
}

// Connection is the stateful object driving one connection handshake (or
// already-open connection) to completion. ASide and BSide must belong to
// two distinct chains; NewConnection and FindConnection check this via
// validateClients, the Restore constructors take the two chain handles as
// given, and nothing re-checks it afterward, since a ChainHandle is not
// expected to change chains mid-life.
type Connection struct {
	DelayPeriod time.Duration
	ASide       ConnectionSide
	BSide       ConnectionSide

	// srcClient is hosted on ASide.Chain and tracks BSide.Chain; dstClient
	// is hosted on BSide.Chain and tracks ASide.Chain. Both are nil on a
	// Connection reconstructed only for introspection (see
	// RestoreConnectionFromEvent/State and WithForeignClients).
	srcClient ForeignClient
	dstClient ForeignClient

	log *zap.SugaredLogger
}

func (c *Connection) logger() *zap.SugaredLogger {
	if c.log == nil {
		return nopLogger.SugaredLogger
	}
	return c.log
}

// NewConnection drives a brand-new handshake to completion: Init on A,
// Try on B, then Ack/Confirm in whichever order the joint state demands.
// aClient is the client of chain B hosted on chain A, and bClient is the
// client of chain A hosted on chain B, consistent with spec.md §4.2.
func NewConnection(ctx context.Context, aClient, bClient ForeignClient, delayPeriod time.Duration, log *zap.SugaredLogger) (*Connection, error) {
	if err := validateClients(aClient, bClient); err != nil {
		return nil, err
	}
	if delayPeriod > MaxPacketDelay {
		return nil, errorsmod.Wrapf(ErrMaxDelayPeriod, "%s exceeds the maximum of %s", delayPeriod, MaxPacketDelay)
	}

	c := &Connection{
		DelayPeriod: delayPeriod,
		ASide:       NewConnectionSide(aClient.DstChain(), aClient.ID(), ""),
		BSide:       NewConnectionSide(bClient.DstChain(), bClient.ID(), ""),
		srcClient:   aClient,
		dstClient:   bClient,
		log:         log,
	}

	if err := c.Handshake(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// RestoreConnectionFromEvent rebuilds a Connection from a handshake event
// observed on chain. The delay period is not carried by any handshake
// event, so it is left at its zero value; callers must refresh it (e.g.
// by querying the connection end) before relying on it for a new
// handshake step (spec.md §4.2, §9).
func RestoreConnectionFromEvent(chain, counterpartyChain ChainHandle, event IBCEvent) (*Connection, error) {
	attrs, ok := connectionAttrs(event)
	if !ok {
		return nil, errorsmod.Wrapf(ErrInvalidEvent, "event %q is not a connection handshake event", event.EventType())
	}

	return &Connection{
		ASide: NewConnectionSide(chain, attrs.ClientID, attrs.ConnectionID),
		BSide: NewConnectionSide(counterpartyChain, attrs.CounterpartyClientID, attrs.CounterpartyConnectionID),
	}, nil
}

// RestoreConnectionFromState rebuilds a Connection by querying the local
// connection end at height and, if its counterparty connection id is not
// yet known (the end is still in Init), scanning every connection on
// counterpartyChain to find the mirror. It returns the reconstructed
// engine alongside the local end's current state.
func RestoreConnectionFromState(ctx context.Context, chain, counterpartyChain ChainHandle, srcConnectionID ConnectionID, height Height) (*Connection, conntypes.State, error) {
	localEnd, err := chain.QueryConnection(ctx, srcConnectionID, height)
	if err != nil {
		return nil, conntypes.UNINITIALIZED, errorsmod.Wrap(ErrRelayer, err.Error())
	}

	c := &Connection{
		DelayPeriod: time.Duration(localEnd.DelayPeriod) * time.Nanosecond,
		ASide:       NewConnectionSide(chain, localEnd.ClientId, srcConnectionID),
		BSide:       NewConnectionSide(counterpartyChain, localEnd.Counterparty.ClientId, localEnd.Counterparty.ConnectionId),
	}

	if localEnd.State == conntypes.INIT && localEnd.Counterparty.ConnectionId == "" {
		connections, err := counterpartyChain.QueryConnections(ctx, AllPages)
		if err != nil {
			return nil, conntypes.UNINITIALIZED, errorsmod.Wrap(ErrRelayer, err.Error())
		}
		for _, conn := range connections {
			if conn.ClientId != localEnd.Counterparty.ClientId {
				continue
			}
			if conn.Counterparty.ConnectionId == srcConnectionID {
				c.BSide.connectionID = conn.ConnectionId
				break
			}
		}
	}

	return c, localEnd.State, nil
}

// FindConnection reconstructs an already-open connection from its end on
// chain A, validating the two client handles against it.
func FindConnection(aClient, bClient ForeignClient, connIDA ConnectionID, endA *conntypes.ConnectionEnd) (*Connection, error) {
	if err := validateClients(aClient, bClient); err != nil {
		return nil, err
	}

	if endA.ClientId != aClient.ID() {
		return nil, errorsmod.Wrapf(ErrConnectionClientIDMismatch, "connection end client id %q != foreign client id %q", endA.ClientId, aClient.ID())
	}
	if endA.Counterparty.ClientId != bClient.ID() {
		return nil, errorsmod.Wrapf(ErrConnectionClientIDMismatch, "counterparty client id %q != foreign client id %q", endA.Counterparty.ClientId, bClient.ID())
	}
	if endA.State != conntypes.OPEN {
		return nil, errorsmod.Wrapf(ErrConnectionNotOpen, "found state %s", endA.State)
	}
	if endA.Counterparty.ConnectionId == "" {
		return nil, errorsmod.Wrapf(ErrMissingCounterpartyConnIDField, "%+v", endA.Counterparty)
	}

	return &Connection{
		DelayPeriod: time.Duration(endA.DelayPeriod) * time.Nanosecond,
		ASide:       NewConnectionSide(aClient.DstChain(), aClient.ID(), connIDA),
		BSide:       NewConnectionSide(bClient.DstChain(), bClient.ID(), endA.Counterparty.ConnectionId),
		srcClient:   aClient,
		dstClient:   bClient,
	}, nil
}

// validateClients checks that the two foreign clients serve the same
// pair of distinct chains in opposite directions.
func validateClients(aClient, bClient ForeignClient) error {
	if aClient.DstChain().ID() == bClient.DstChain().ID() {
		return errorsmod.Wrapf(ErrChainIDMismatch, "both clients are hosted on %s", aClient.DstChain().ID())
	}
	if aClient.SrcChain().ID() != bClient.DstChain().ID() {
		return errorsmod.Wrapf(ErrChainIDMismatch, "%s != %s", aClient.SrcChain().ID(), bClient.DstChain().ID())
	}
	if aClient.DstChain().ID() != bClient.SrcChain().ID() {
		return errorsmod.Wrapf(ErrChainIDMismatch, "%s != %s", aClient.DstChain().ID(), bClient.SrcChain().ID())
	}
	return nil
}

// SrcChain and DstChain name the "source"/"destination" pair for
// whichever step is currently being built: reads come from SrcChain,
// writes land on DstChain. Flipped() swaps the roles so the same
// builders serve either direction.
func (c *Connection) SrcChain() ChainHandle { return c.ASide.Chain }
func (c *Connection) DstChain() ChainHandle { return c.BSide.Chain }

func (c *Connection) SrcClientID() ClientID { return c.ASide.ClientID }
func (c *Connection) DstClientID() ClientID { return c.BSide.ClientID }

func (c *Connection) SrcConnectionID() (ConnectionID, bool) { return c.ASide.ConnectionID() }
func (c *Connection) DstConnectionID() (ConnectionID, bool) { return c.BSide.ConnectionID() }

// Flipped returns a new engine with the two sides swapped, so that
// build_conn_*'s "destination" is the other chain.
func (c *Connection) Flipped() *Connection {
	return &Connection{
		DelayPeriod: c.DelayPeriod,
		ASide:       c.BSide,
		BSide:       c.ASide,
		srcClient:   c.dstClient,
		dstClient:   c.srcClient,
		log:         c.log,
	}
}

// Handshake drives the joint state (state_on_A, state_on_B) to
// (Open, Open), per spec.md §4.3.
func (c *Connection) Handshake(ctx context.Context) error {
	log := withChainPair(c.log, c.ASide.Chain.ID(), c.BSide.Chain.ID())

	if _, ok := c.ASide.ConnectionID(); !ok {
		if err := c.ensureInitOnA(ctx, log); err != nil {
			return err
		}
	}
	if _, ok := c.BSide.ConnectionID(); !ok {
		if err := c.ensureTryOnB(ctx, log); err != nil {
			return err
		}
	}
	return c.driveToOpen(ctx, log)
}

// ensureInitOnA runs Phase 1: up to MaxRetries attempts of OpenInit
// against chain A, recording the connection id the chain assigns.
func (c *Connection) ensureInitOnA(ctx context.Context, log *zap.SugaredLogger) error {
	sideLog := withConnection(log, "A", c.ASide.Chain.ID(), c.ASide.ClientID, "")

	var event IBCEvent
	handshakeAttempts.WithLabelValues("init").Inc()

	err := retry.Do(func() error {
		var err error
		event, err = c.Flipped().BuildConnInitAndSend(ctx)
		if err != nil {
			sideLog.Warnw("failed ConnInit", "error", err)
		}
		return err
	}, RtyAtt, RtyDel, RtyErr)
	if err != nil {
		handshakeFailures.WithLabelValues("init").Inc()
		return err
	}

	connID, err := extractConnectionID(event)
	if err != nil {
		return err
	}
	c.ASide.connectionID = connID
	return nil
}

// ensureTryOnB runs Phase 2: the OpenTry counterpart of Phase 1.
func (c *Connection) ensureTryOnB(ctx context.Context, log *zap.SugaredLogger) error {
	sideLog := withConnection(log, "B", c.BSide.Chain.ID(), c.BSide.ClientID, "")

	var event IBCEvent
	handshakeAttempts.WithLabelValues("try").Inc()

	err := retry.Do(func() error {
		var err error
		event, err = c.BuildConnTryAndSend(ctx)
		if err != nil {
			sideLog.Warnw("failed ConnTry", "error", err)
		}
		return err
	}, RtyAtt, RtyDel, RtyErr)
	if err != nil {
		handshakeFailures.WithLabelValues("try").Inc()
		return err
	}

	connID, err := extractConnectionID(event)
	if err != nil {
		return err
	}
	c.BSide.connectionID = connID
	return nil
}

// driveToOpen runs Phase 3: up to MaxRetries iterations dispatching on
// the joint state until both ends are Open.
//
// A query error here is treated as transient and does not consume the
// retry budget: the loop re-queries straight away. Every iteration whose
// two queries succeed consumes one unit of the budget, whether it
// dispatches a step (successful or not) or finds nothing to do. A chain
// whose queries keep failing therefore keeps the loop re-querying with
// no bound.
func (c *Connection) driveToOpen(ctx context.Context, log *zap.SugaredLogger) error {
	var errs error

	for attempt := 0; attempt < MaxRetries; {
		srcConnID, ok := c.SrcConnectionID()
		if !ok {
			return ErrMissingLocalConnectionID
		}
		dstConnID, ok := c.DstConnectionID()
		if !ok {
			return ErrMissingCounterpartyConnectionID
		}

		aConn, bConn, err := queryConnectionPair(ctx, c.ASide.Chain, c.BSide.Chain, srcConnID, dstConnID)
		if err != nil {
			continue
		}

		attempt++

		var stepErr error
		switch {
		case aConn.State == conntypes.INIT && bConn.State == conntypes.TRYOPEN,
			aConn.State == conntypes.TRYOPEN && bConn.State == conntypes.TRYOPEN:
			handshakeAttempts.WithLabelValues("ack").Inc()
			_, stepErr = c.Flipped().BuildConnAckAndSend(ctx)

		case aConn.State == conntypes.OPEN && bConn.State == conntypes.TRYOPEN:
			handshakeAttempts.WithLabelValues("confirm").Inc()
			_, stepErr = c.BuildConnConfirmAndSend(ctx)

		case aConn.State == conntypes.TRYOPEN && bConn.State == conntypes.OPEN:
			handshakeAttempts.WithLabelValues("confirm").Inc()
			_, stepErr = c.Flipped().BuildConnConfirmAndSend(ctx)

		case aConn.State == conntypes.OPEN && bConn.State == conntypes.OPEN:
			log.Infow("connection handshake finished", "connection_a", srcConnID, "connection_b", dstConnID)
			handshakeCompletions.Inc()
			return nil

		default:
			// No step applies to this pair of states; nothing to do yet,
			// wait for the next query to observe progress.
		}

		if stepErr != nil {
			log.Errorw("handshake step failed", "error", stepErr)
			handshakeFailures.WithLabelValues("drive").Inc()
			errs = multierr.Append(errs, stepErr)
		}
	}

	if errs != nil {
		return errorsmod.Wrapf(ErrMaxRetry, "last errors: %s", errs)
	}
	return ErrMaxRetry
}

// CounterpartyState returns the state of the mirror connection on the
// destination chain, as seen via the introspection layer.
func (c *Connection) CounterpartyState(ctx context.Context) (conntypes.State, error) {
	srcConnID, ok := c.SrcConnectionID()
	if !ok {
		return conntypes.UNINITIALIZED, ErrMissingLocalConnectionID
	}

	connEnd, err := c.SrcChain().QueryConnection(ctx, srcConnID, ZeroHeight())
	if err != nil {
		return conntypes.UNINITIALIZED, errorsmod.Wrapf(ErrConnectionQuery, "%s: %s", srcConnID, err)
	}

	ident := &conntypes.IdentifiedConnectionEnd{ConnectionId: srcConnID, ClientId: connEnd.ClientId, Counterparty: connEnd.Counterparty, State: connEnd.State, Versions: connEnd.Versions, DelayPeriod: connEnd.DelayPeriod}

	state, err := ConnectionStateOnDestination(ctx, ident, c.DstChain())
	if err != nil {
		return conntypes.UNINITIALIZED, errorsmod.Wrap(ErrSupervisor, err.Error())
	}
	return state, nil
}

// HandshakeStep builds and sends whichever message advances the
// handshake from state (this engine's local state) given the observed
// counterparty state, for use by an externally-driven scheduler instead
// of Handshake's bounded loop (spec.md §9, "retry loops as coroutines").
func (c *Connection) HandshakeStep(ctx context.Context, state conntypes.State) ([]IBCEvent, error) {
	counterparty, err := c.CounterpartyState(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case state == conntypes.INIT && (counterparty == conntypes.UNINITIALIZED || counterparty == conntypes.INIT):
		event, err := c.BuildConnTryAndSend(ctx)
		if err != nil {
			return nil, err
		}
		return []IBCEvent{event}, nil

	case state == conntypes.TRYOPEN && (counterparty == conntypes.INIT || counterparty == conntypes.TRYOPEN):
		event, err := c.BuildConnAckAndSend(ctx)
		if err != nil {
			return nil, err
		}
		return []IBCEvent{event}, nil

	case state == conntypes.OPEN && counterparty == conntypes.TRYOPEN:
		event, err := c.BuildConnConfirmAndSend(ctx)
		if err != nil {
			return nil, err
		}
		return []IBCEvent{event}, nil

	default:
		return nil, nil
	}
}

// StepState is HandshakeStep adapted for an external retry scheduler: it
// reports success/failure instead of returning the events, so a caller
// can track its own retry index across many connections.
func (c *Connection) StepState(ctx context.Context, state conntypes.State) error {
	_, err := c.HandshakeStep(ctx, state)
	if err != nil {
		c.logger().Errorw("handshake step failed", "state", state, "error", err)
	}
	return err
}

// StepEvent maps an observed IBCEvent to the local state it implies and
// delegates to StepState.
func (c *Connection) StepEvent(ctx context.Context, event IBCEvent) error {
	var state conntypes.State
	switch event.(type) {
	case OpenInitConnectionEvent:
		state = conntypes.INIT
	case OpenTryConnectionEvent:
		state = conntypes.TRYOPEN
	case OpenAckConnectionEvent, OpenConfirmConnectionEvent:
		state = conntypes.OPEN
	default:
		state = conntypes.UNINITIALIZED
	}
	return c.StepState(ctx, state)
}

func (c *Connection) String() string {
	aID, _ := c.ASide.ConnectionID()
	bID, _ := c.BSide.ConnectionID()
	return fmt.Sprintf("Connection{a: %s/%s client=%s, b: %s/%s client=%s, delay=%s}",
		c.ASide.Chain.ID(), aID, c.ASide.ClientID,
		c.BSide.Chain.ID(), bID, c.BSide.ClientID,
		c.DelayPeriod)
}
