package runtime

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// SubQueue decouples a publisher from one subscriber. Enqueue never blocks;
// a background goroutine forwards queued values to the subscriber channel.
// The queue starts paused so a snapshot can be sent ahead of live values.
type SubQueue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	maxLen  int
	dropped int
	closed  bool

	outCh     chan T
	paused    bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewSubQueue creates a paused queue. outBuf sizes the subscriber channel,
// maxLen bounds the backlog (0 means unbounded); when full the oldest value
// is dropped.
func NewSubQueue[T any](outBuf, maxLen int) *SubQueue[T] {
	sq := &SubQueue[T]{
		outCh:  make(chan T, outBuf),
		maxLen: maxLen,
		paused: true,
		done:   make(chan struct{}),
	}
	sq.cond = sync.NewCond(&sq.mu)
	go sq.dispatch()
	return sq
}

func (sq *SubQueue[T]) Chan() <-chan T { return sq.outCh }

func (sq *SubQueue[T]) Enqueue(ev T) {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.closed {
		return
	}
	if sq.maxLen > 0 && len(sq.queue) >= sq.maxLen {
		sq.queue = sq.queue[1:]
		sq.dropped++
		log.WithField("dropped", sq.dropped).Warn("Subscriber queue full, dropping oldest event")
	}
	sq.queue = append(sq.queue, ev)
	sq.cond.Signal()
}

// SendSnapshot writes straight to the subscriber channel. Only valid while
// paused, and the channel buffer must hold the whole snapshot.
func (sq *SubQueue[T]) SendSnapshot(ev T) {
	sq.outCh <- ev
}

func (sq *SubQueue[T]) SetPaused(v bool) {
	sq.mu.Lock()
	sq.paused = v
	sq.cond.Broadcast()
	sq.mu.Unlock()
}

// Dropped returns how many values were discarded because the backlog was full.
func (sq *SubQueue[T]) Dropped() int {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.dropped
}

// Close stops the dispatcher and closes the subscriber channel, even if the
// subscriber stopped reading. Values still queued are discarded.
func (sq *SubQueue[T]) Close() {
	sq.mu.Lock()
	sq.closed = true
	sq.cond.Broadcast()
	sq.mu.Unlock()
	sq.closeOnce.Do(func() { close(sq.done) })
}

func (sq *SubQueue[T]) dispatch() {
	for {
		sq.mu.Lock()
		for !sq.closed && (sq.paused || len(sq.queue) == 0) {
			sq.cond.Wait()
		}
		if sq.closed {
			sq.mu.Unlock()
			close(sq.outCh)
			return
		}
		ev := sq.queue[0]
		var zero T
		sq.queue[0] = zero
		sq.queue = sq.queue[1:]
		sq.mu.Unlock()

		select {
		case sq.outCh <- ev:
		case <-sq.done:
			close(sq.outCh)
			return
		}
	}
}
