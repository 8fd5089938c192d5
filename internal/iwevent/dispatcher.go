package iwevent

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

type DispatchMode int

const (
	// DispatchConcurrent runs every callback on its own goroutine.
	DispatchConcurrent DispatchMode = iota
	// DispatchInline runs callbacks one after another on the reading
	// goroutine. A callback that blocks stalls event processing.
	DispatchInline
)

func (m DispatchMode) String() string {
	switch m {
	case DispatchConcurrent:
		return "concurrent"
	case DispatchInline:
		return "inline"
	default:
		return "unknown"
	}
}

// Dispatcher invokes the callbacks of an event according to its mode.
// In concurrent mode without detach, every spawned goroutine is tracked
// and Wait blocks until all of them returned.
type Dispatcher struct {
	mode   DispatchMode
	detach bool
	wg     sync.WaitGroup
}

func NewDispatcher(mode DispatchMode, detach bool) *Dispatcher {
	return &Dispatcher{mode: mode, detach: detach}
}

func (d *Dispatcher) Dispatch(kind EventKind, callbacks []Callback) {
	if len(callbacks) == 0 {
		return
	}

	log.WithFields(log.Fields{
		"event":     kind,
		"callbacks": len(callbacks),
		"mode":      d.mode,
	}).Debug("Dispatching event")

	for _, cb := range callbacks {
		switch {
		case d.mode == DispatchInline:
			invoke(kind, cb)
		case d.detach:
			go invoke(kind, cb)
		default:
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				invoke(kind, cb)
			}()
		}
	}
}

// Wait blocks until every tracked callback goroutine returned. It has no
// timeout.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func invoke(kind EventKind, cb Callback) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"event": kind,
				"panic": r,
			}).Error("Event callback panicked")
		}
	}()
	cb()
}
