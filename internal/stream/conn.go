package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/satview/satview/internal/metrics"
)

// perWriteTimeout bounds a single SSE write. The connection-level deadline is
// cleared at setup; each write arms its own, so one stalled client is
// detected within a message instead of holding a goroutine forever.
const perWriteTimeout = 30 * time.Second

// subscriber is one connected SSE client. All writes funnel through emit so
// the deadline, flush and byte accounting happen in exactly one place.
type subscriber struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController

	messages int64
	bytes    int64
}

func newSubscriber(w http.ResponseWriter, flusher http.Flusher, rc *http.ResponseController) *subscriber {
	return &subscriber{w: w, flusher: flusher, rc: rc}
}

// emit writes one complete SSE frame and flushes it.
func (s *subscriber) emit(frame string) error {
	// A failed deadline update is not fatal: httptest recorders and some
	// wrappers do not support deadlines at all.
	s.rc.SetWriteDeadline(time.Now().Add(perWriteTimeout))

	n, err := fmt.Fprint(s.w, frame)
	s.bytes += int64(n)
	metrics.AddStreamBytes(int64(n))
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	s.flusher.Flush()
	return nil
}

// sendEvent frames pre-marshaled JSON as a "data:" message.
func (s *subscriber) sendEvent(data []byte) error {
	if err := s.emit("data: " + string(data) + "\n\n"); err != nil {
		return err
	}
	s.messages++
	metrics.IncStreamMessages()
	return nil
}

// sendJSON marshals v and sends it as a "data:" message.
func (s *subscriber) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return s.sendEvent(data)
}

// sendKeepalive emits an SSE comment frame.
func (s *subscriber) sendKeepalive() error {
	return s.emit(":\n\n")
}
