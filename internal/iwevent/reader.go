package iwevent

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/iwmon/internal/procgroup"
)

type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateStopping
	StateStopped
	StateStartupFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateStartupFailed:
		return "startup-failed"
	default:
		return "unknown"
	}
}

// exitDrainDelay is how long the reading loop may keep draining stdout
// after the process exited. Children it left behind can hold the pipe open.
const exitDrainDelay = 500 * time.Millisecond

// reader owns the external process and the goroutine consuming its stdout.
type reader struct {
	path   string
	args   []string
	handle func(line string)

	mu     sync.Mutex
	state  State
	cmd    *exec.Cmd
	stdout *os.File
	stderr io.Closer

	waitErr  error
	exitCh   chan struct{}
	stopping atomic.Bool
	done     chan struct{}
}

func newReader(path string, args []string, handle func(line string)) *reader {
	return &reader{
		path:   path,
		args:   args,
		handle: handle,
		exitCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// start launches the process and the reading goroutine. It does not wait
// for any output.
func (r *reader) start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateNotStarted {
		return fmt.Errorf("reader already started (state %s)", r.state)
	}

	cmd := exec.Command(r.path, r.args...)
	procgroup.Configure(cmd)
	cmd.WaitDelay = time.Second

	// A plain pipe instead of StdoutPipe: Wait must not close the read end
	// while the loop is still draining it.
	pr, pw, err := os.Pipe()
	if err != nil {
		r.state = StateStartupFailed
		return fmt.Errorf("stdout pipe for %s: %w", r.path, err)
	}
	cmd.Stdout = pw

	stderr := log.WithField("command", r.path).WriterLevel(log.DebugLevel)
	cmd.Stderr = stderr

	err = cmd.Start()
	_ = pw.Close()
	if err != nil {
		_ = pr.Close()
		_ = stderr.Close()
		r.state = StateStartupFailed
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, r.path, err)
		}
		return fmt.Errorf("start %s: %w", r.path, err)
	}

	r.cmd = cmd
	r.stdout = pr
	r.stderr = stderr
	r.state = StateRunning

	log.WithFields(log.Fields{
		"command": r.path,
		"pid":     cmd.Process.Pid,
	}).Debug("Started event monitor process")

	go r.wait()
	go r.loop()
	return nil
}

// wait reaps the process and bounds how long the loop keeps reading
// afterwards.
func (r *reader) wait() {
	err := r.cmd.Wait()

	r.mu.Lock()
	r.waitErr = err
	r.mu.Unlock()

	if err := r.stdout.SetReadDeadline(time.Now().Add(exitDrainDelay)); err != nil {
		log.WithError(err).WithField("command", r.path).Debug("Cannot bound event monitor output drain")
	}
	close(r.exitCh)
}

func (r *reader) loop() {
	defer close(r.done)

	br := bufio.NewReader(r.stdout)
	reaped := false
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 && !r.stopping.Load() {
			log.WithField("line", line).Trace("Received event monitor output")
			r.handle(line)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, os.ErrDeadlineExceeded) && !reaped {
			// The process exited but children it left behind still hold
			// stdout. Kill them and drain what they wrote.
			reaped = true
			log.WithField("command", r.path).Debug("Event monitor exited, killing children holding its output")
			if err := procgroup.Kill(r.cmd); err != nil {
				log.WithError(err).WithField("command", r.path).Debug("Kill of leftover children failed")
			}
			_ = r.stdout.SetReadDeadline(time.Now().Add(exitDrainDelay))
			continue
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrDeadlineExceeded) && !r.stopping.Load() {
			log.WithError(err).Warn("Error reading event monitor output")
		}
		break
	}

	<-r.exitCh
	_ = r.stdout.Close()

	r.mu.Lock()
	r.state = StateStopped
	waitErr := r.waitErr
	_ = r.stderr.Close()
	r.mu.Unlock()

	entry := log.WithField("command", r.path)
	if waitErr != nil && !r.stopping.Load() {
		entry.WithError(waitErr).Warn("Event monitor process exited")
	} else {
		entry.Debug("Event monitor process exited")
	}
}

// stop kills the process and waits up to timeout for the reading goroutine.
// On timeout the state is left at StateStopping.
func (r *reader) stop(timeout time.Duration) error {
	r.stopping.Store(true)

	r.mu.Lock()
	if r.state == StateRunning {
		r.state = StateStopping
	}
	// Children may still hold stdout after the process itself exited, so
	// the group is killed until the loop has ended.
	if r.cmd != nil && r.state != StateStopped {
		if err := procgroup.Kill(r.cmd); err != nil {
			log.WithError(err).WithField("command", r.path).Debug("Kill of event monitor process failed")
		}
	}
	started := r.cmd != nil
	r.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: reading loop still running after %s", ErrUncleanShutdown, timeout)
	}
}

func (r *reader) currentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
