package broadcast

import (
	"sync"
)

const messageBufferSize = 16

// Conn is the bidirectional client connection the hub pushes to. Send must
// fail once the peer is gone; the hub treats a failed send as a disconnect.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// clientWriter decouples fan-out from individual connection speed: the hub
// enqueues into sendChannel and a dedicated goroutine drains it. When the
// underlying send fails the goroutine exits; the stalled buffer then gets
// the client evicted lazily on the next broadcast.
type clientWriter struct {
	conn        Conn
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newClientWriter(conn Conn) *clientWriter {
	cw := &clientWriter{
		conn:        conn,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	defer cw.wg.Done()
	for {
		select {
		case msg, ok := <-cw.sendChannel:
			if !ok {
				return
			}
			if err := cw.conn.Send(msg); err != nil {
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

// enqueue offers a message without blocking. It reports false when the
// buffer is full, which the hub takes as a dead or hopelessly slow client.
func (cw *clientWriter) enqueue(msg []byte) bool {
	select {
	case cw.sendChannel <- msg:
		return true
	default:
		return false
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.conn.Close()
	})
	cw.wg.Wait()
}
