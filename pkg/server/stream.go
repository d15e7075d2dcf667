package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/entrhq/pagechat/pkg/types"
)

const (
	defaultHeartbeat    = 15 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// errStreamClosed is returned by writes after the handler finished.
var errStreamClosed = errors.New("event stream closed")

// eventStream writes server-sent events to an HTTP response. All writes
// happen under mu and stop once close returns.
type eventStream struct {
	w            io.Writer
	flush        func()
	setDeadline  func(time.Time) error
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newEventStream(w http.ResponseWriter, writeTimeout time.Duration) *eventStream {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")

	var flushFn func()
	if f, ok := w.(http.Flusher); ok {
		flushFn = f.Flush
	}
	return &eventStream{
		w:            w,
		flush:        flushFn,
		setDeadline:  http.NewResponseController(w).SetWriteDeadline,
		writeTimeout: writeTimeout,
	}
}

// send writes one event with a JSON data line.
func (s *eventStream) send(event string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return s.write([]byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, body)))
}

// sendEvent writes ev's payload under its event type.
func (s *eventStream) sendEvent(ev *types.Event) error {
	switch ev.Type {
	case types.EventTypeDelta:
		return s.send(string(ev.Type), ev.Delta)
	case types.EventTypeResult:
		return s.send(string(ev.Type), ev.Response)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// startHeartbeat writes comment records every interval until close.
func (s *eventStream) startHeartbeat(interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := s.write([]byte(fmt.Sprintf(": ping %d\n\n", time.Now().Unix()))); err != nil {
					return
				}
			}
		}
	}()
}

// close stops further writes and waits for the heartbeat to exit. done
// must already be closed or about to be.
func (s *eventStream) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *eventStream) write(data []byte) error {
	if s == nil || s.w == nil {
		return errors.New("event stream writer not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStreamClosed
	}
	if s.writeTimeout > 0 && s.setDeadline != nil {
		// Recorders and wrapped writers may not support deadlines.
		if err := s.setDeadline(time.Now().Add(s.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}
