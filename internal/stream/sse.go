// Package stream implements Server-Sent Events streaming of sub-point
// batches. Clients connect via GET /api/v1/stream/positions and receive the
// whole catalog's geodetic positions once per tick, served from the snapshot
// cache so a thousand clients cost one propagation.
//
// SSE message format:
//
//	data: {"type":"position_batch","t":"2026-08-31T04:00:00Z","sat":[...]}\n\n
//
// The first message on every connection is metadata:
//
//	data: {"type":"metadata","dataset_epoch":"...","tle_age_seconds":1800}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/satview/satview/internal/metrics"
	"github.com/satview/satview/internal/propagation"
	"github.com/satview/satview/internal/snapshot"
	"github.com/satview/satview/internal/tle"
)

// defaultMaxConcurrentTotal caps service-wide streams when the config does
// not say otherwise.
const defaultMaxConcurrentTotal = 1000

// Config holds streaming limits and intervals.
type Config struct {
	MaxConcurrentPerIP int           // max concurrent streams per IP
	MaxConcurrentTotal int           // max concurrent streams service-wide (0 = default)
	KeepaliveInterval  time.Duration // keep-alive comment interval
	TrustProxy         bool          // honor X-Forwarded-For / X-Real-IP
}

// Handler manages SSE streaming connections.
type Handler struct {
	cache   *snapshot.Cache
	store   *tle.Store
	config  Config
	limiter *connTable
	logger  *slog.Logger
}

func NewHandler(cache *snapshot.Cache, store *tle.Store, config Config, logger *slog.Logger) *Handler {
	total := config.MaxConcurrentTotal
	if total < 1 {
		total = defaultMaxConcurrentTotal
	}
	return &Handler{
		cache:   cache,
		store:   store,
		config:  config,
		limiter: newConnTable(config.MaxConcurrentPerIP, total),
		logger:  logger,
	}
}

// HandlePositions serves the SSE position stream.
// GET /api/v1/stream/positions?step=5&trail=20
func (h *Handler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	step := 5
	if v := r.URL.Query().Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			writeJSONError(w, http.StatusBadRequest, "invalid step parameter, must be 1-60")
			return
		}
		step = n
	}

	trail := 0
	if v := r.URL.Query().Get("trail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 120 {
			writeJSONError(w, http.StatusBadRequest, "invalid trail parameter, must be 0-120")
			return
		}
		trail = n
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ip := h.config.remoteIP(r)
	if !h.limiter.add(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.active(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"step", step,
		"trail", trail,
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Long-lived connection: clear the server's default write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := newSubscriber(w, flusher, rc)
	defer func() {
		h.limiter.remove(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
			"messages_sent", c.messages,
			"bytes_sent", c.bytes,
		)
	}()

	// Jittered retry interval (3-7s) so a restart does not trigger a
	// reconnect stampede.
	retryMs := 3000 + rand.Intn(4000)
	if err := c.emit(fmt.Sprintf("retry: %d\n\n", retryMs)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (retry)", "remote_ip", ip, "error", err)
		return
	}

	if ds := h.store.Get(); ds != nil {
		meta := metadataMessage{
			Type:         "metadata",
			DatasetEpoch: ds.FetchedAt.UTC().Format(time.RFC3339),
			TLEAge:       int(time.Since(ds.FetchedAt).Seconds()),
		}
		if err := c.sendJSON(meta); err != nil {
			metrics.IncStreamErrors("send_error")
			h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
			return
		}
	}

	ticker := time.NewTicker(time.Duration(step) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-ticker.C:
			snap := h.cache.Get(t)
			if snap == nil {
				snap = h.cache.GetLatest()
			}
			if snap == nil {
				metrics.IncStreamErrors("cache_miss")
				h.logger.Debug("stream cache miss",
					"timestamp", h.cache.RoundToStep(t).Format(time.RFC3339),
					"remote_ip", ip,
				)
				continue
			}

			var trailSnaps []*propagation.Snapshot
			if trail > 0 {
				trailSnaps = h.cache.GetRecent(t, trail)
			}

			batch := buildBatchMessage(snap, trailSnaps)
			data, err := json.Marshal(batch)
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				h.logger.Warn("stream marshal error", "remote_ip", ip, "error", err)
				continue
			}
			if err := c.sendEvent(data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}

			// Data just went out; push the next keepalive back.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// buildBatchMessage formats a snapshot into the SSE batch payload. When
// trailSnaps is non-empty each satellite carries its recent sub-points as
// [lat, lon] pairs, oldest first.
func buildBatchMessage(snap *propagation.Snapshot, trailSnaps []*propagation.Snapshot) positionBatchMessage {
	var trailIndex map[int][][2]float64
	if len(trailSnaps) > 0 {
		trailIndex = make(map[int][][2]float64, len(snap.Satellites))
		for _, ts := range trailSnaps {
			for _, s := range ts.Satellites {
				trailIndex[s.NORADID] = append(trailIndex[s.NORADID], [2]float64{s.LatDeg, s.LonDeg})
			}
		}
	}

	sats := make([]satPayload, len(snap.Satellites))
	for i, s := range snap.Satellites {
		sats[i] = satPayload{SubPoint: s}
		if trailIndex != nil {
			sats[i].Trail = trailIndex[s.NORADID]
		}
	}

	return positionBatchMessage{
		Type: "position_batch",
		T:    snap.Timestamp.UTC().Format(time.RFC3339),
		Sat:  sats,
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type         string `json:"type"`
	DatasetEpoch string `json:"dataset_epoch"`
	TLEAge       int    `json:"tle_age_seconds"`
}

type positionBatchMessage struct {
	Type string       `json:"type"`
	T    string       `json:"t"`
	Sat  []satPayload `json:"sat"`
}

type satPayload struct {
	propagation.SubPoint
	Trail [][2]float64 `json:"tr,omitempty"`
}
