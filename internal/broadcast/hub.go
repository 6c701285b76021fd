package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaimehuang168/VoxParaguay2026/internal/domain"
	"github.com/jaimehuang168/VoxParaguay2026/internal/metrics"
	"github.com/jaimehuang168/VoxParaguay2026/internal/state"
)

const (
	commandTimeout  = 5 * time.Second
	snapshotTimeout = 2 * time.Second
)

// Stream identifies which event feed a client joins.
type Stream string

const (
	StreamAgents    Stream = "agents"
	StreamSentiment Stream = "sentiment"
)

// SnapshotFunc produces the initial_state payload a client must receive
// before any incremental event, so it never operates on a partial view.
type SnapshotFunc func(ctx context.Context) ([]byte, error)

// StreamSpec binds a stream to its store channel and snapshot source.
type StreamSpec struct {
	Channel  string
	Snapshot SnapshotFunc
}

// Subscriber is the slice of the shared store the hub needs.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) state.Subscription
}

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	stream       Stream
	conn         Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	stream Stream
	conn   Conn
}

type broadcastCmd struct {
	baseHubCmd
	stream Stream
	data   []byte
}

type clientCountCmd struct {
	baseHubCmd
	stream       Stream
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
	doneChannel chan struct{}
}

// --- Hub ---

type streamState struct {
	clients map[Conn]*clientWriter
	cancel  context.CancelFunc
	sub     state.Subscription
}

// Hub fans every event on the subscribed store channels out to all locally
// registered connections. Events on those channels are the only way this
// instance learns about changes made by its peers.
type Hub struct {
	cmdCh      chan hubCmd
	subscriber Subscriber
	specs      map[Stream]StreamSpec
	streams    map[Stream]*streamState
	maxClients int
	done       chan struct{}
}

func NewHub(subscriber Subscriber, specs map[Stream]StreamSpec, maxClientsPerStream int) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		subscriber: subscriber,
		specs:      specs,
		streams:    make(map[Stream]*streamState),
		maxClients: maxClientsPerStream,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a connection to a stream. The connection receives the
// stream's initial_state snapshot before any incremental event. The first
// registration on a stream opens the store subscription.
func (h *Hub) Register(stream Stream, conn Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{stream: stream, conn: conn, errorChannel: errCh}

	select {
	case err := <-errCh:
		return err
	case <-time.After(commandTimeout):
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection from a stream. Removing the last
// connection tears the store subscription down.
func (h *Hub) Unregister(stream Stream, conn Conn) {
	h.cmdCh <- unregisterCmd{stream: stream, conn: conn}
}

// ClientCount returns the number of connections on a stream, or -1 on
// timeout.
func (h *Hub) ClientCount(stream Stream) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{stream: stream, replyChannel: replyCh}

	select {
	case count := <-replyCh:
		return count
	case <-time.After(commandTimeout):
		slog.Warn("ClientCount timed out", "stream", string(stream))
		return -1
	}
}

// Stop closes all connections and subscriptions and waits for the hub
// goroutine to exit.
func (h *Hub) Stop() {
	doneCh := make(chan struct{})
	h.cmdCh <- stopCmd{doneChannel: doneCh}
	<-doneCh
}

func (h *Hub) run() {
	defer close(h.done)
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.stream, c.conn)
		case broadcastCmd:
			h.handleBroadcast(c)
		case clientCountCmd:
			if st := h.streams[c.stream]; st != nil {
				c.replyChannel <- len(st.clients)
			} else {
				c.replyChannel <- 0
			}
		case stopCmd:
			h.handleStop()
			close(c.doneChannel)
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	spec, ok := h.specs[c.stream]
	if !ok {
		c.conn.Close()
		c.errorChannel <- fmt.Errorf("unknown stream %q", c.stream)
		return
	}

	st := h.streams[c.stream]
	if st != nil && len(st.clients) >= h.maxClients {
		slog.Warn("Rejecting client: max clients reached", "stream", string(c.stream), "max_clients", h.maxClients)
		c.conn.Close()
		c.errorChannel <- fmt.Errorf("max clients per stream (%d) reached", h.maxClients)
		return
	}

	// Snapshot first: enqueueing it before the stream can broadcast again
	// guarantees initial_state precedes every incremental event.
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	snapshot, err := spec.Snapshot(ctx)
	cancel()
	if err != nil {
		slog.Error("Failed to build initial_state snapshot", "stream", string(c.stream), "error", err)
		c.conn.Close()
		c.errorChannel <- fmt.Errorf("initial state unavailable: %w", err)
		return
	}

	if st == nil {
		subCtx, subCancel := context.WithCancel(context.Background())
		sub := h.subscriber.Subscribe(subCtx, spec.Channel)
		st = &streamState{
			clients: make(map[Conn]*clientWriter),
			cancel:  subCancel,
			sub:     sub,
		}
		h.streams[c.stream] = st
		go h.subscriberLoop(c.stream, sub)
		slog.Info("Opened store subscription", "stream", string(c.stream), "channel", spec.Channel)
	}

	cw := newClientWriter(c.conn)
	cw.enqueue(snapshot)
	st.clients[c.conn] = cw

	metrics.HubConnectedClients.WithLabelValues(string(c.stream)).Set(float64(len(st.clients)))
	slog.Debug("Client registered", "stream", string(c.stream), "total_clients", len(st.clients))
	c.errorChannel <- nil
}

// subscriberLoop forwards store messages to the actor. Unparseable payloads
// are dropped and logged; they must never take the process down. The loop
// ends when the subscription closes.
func (h *Hub) subscriberLoop(stream Stream, sub state.Subscription) {
	for msg := range sub.Messages() {
		var envelope domain.Envelope
		if err := json.Unmarshal(msg, &envelope); err != nil || envelope.Type == "" {
			metrics.HubDroppedMessagesTotal.WithLabelValues(string(stream)).Inc()
			slog.Warn("Dropping unparseable event", "stream", string(stream), "error", err)
			continue
		}
		select {
		case h.cmdCh <- broadcastCmd{stream: stream, data: msg}:
		case <-h.done:
			return
		}
	}
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	st := h.streams[c.stream]
	if st == nil {
		return
	}

	var dead []Conn
	for conn, cw := range st.clients {
		if !cw.enqueue(c.data) {
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		slog.Warn("Evicting slow client", "stream", string(c.stream))
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(c.stream, conn)
	}

	metrics.HubEventsDeliveredTotal.WithLabelValues(string(c.stream)).Inc()
}

func (h *Hub) handleUnregister(stream Stream, conn Conn) {
	st := h.streams[stream]
	if st == nil {
		return
	}
	cw, ok := st.clients[conn]
	if !ok {
		return
	}

	cw.stop()
	delete(st.clients, conn)
	metrics.HubConnectedClients.WithLabelValues(string(stream)).Set(float64(len(st.clients)))

	if len(st.clients) == 0 {
		st.cancel()
		_ = st.sub.Close()
		delete(h.streams, stream)
		slog.Info("Last client disconnected, closed store subscription", "stream", string(stream))
	} else {
		slog.Debug("Client unregistered", "stream", string(stream), "remaining_clients", len(st.clients))
	}
}

func (h *Hub) handleStop() {
	for stream, st := range h.streams {
		for _, cw := range st.clients {
			cw.stop()
		}
		st.cancel()
		_ = st.sub.Close()
		delete(h.streams, stream)
		metrics.HubConnectedClients.WithLabelValues(string(stream)).Set(0)
	}
}
