package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"combatsim/broker/internal/combat"
	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
)

const (
	frameProgress = "progress"
	frameResult   = "result"
	frameError    = "error"
	frameCancel   = "cancel"

	streamBuffer     = 16
	progressInterval = 100 * time.Millisecond
	writeWait        = 10 * time.Second
)

// StreamFrame is every server to client message on /ws/simulate.
type StreamFrame struct {
	Type     string               `json:"type"`
	Progress *simulation.Progress `json:"progress,omitempty"`
	Result   *simulation.Result   `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
	Field    string               `json:"field,omitempty"`
}

func errorFrame(err error) StreamFrame {
	var configErr *combat.ConfigError
	if errors.As(err, &configErr) {
		return StreamFrame{Type: frameError, Error: configErr.Error(), Field: configErr.Field}
	}
	return StreamFrame{Type: frameError, Error: "unexpected error"}
}

func (h *HandlerSet) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || h.allowedOrigins[origin]
}

// StreamHandler runs a simulation over a WebSocket. The first client frame is the
// configuration; progress frames follow until a result or error frame ends the stream.
// A {"type":"cancel"} frame stops the run at its next batch boundary.
func (h *HandlerSet) StreamHandler() http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.LoggerFromContext(r.Context()).With(
			logging.String("handler", "simulate_stream"),
			logging.String("remote_addr", r.RemoteAddr),
		)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			reqLogger.Warn("websocket upgrade failed", logging.Error(err))
			return
		}
		defer conn.Close()
		if h.maxPayloadBytes > 0 {
			conn.SetReadLimit(h.maxPayloadBytes)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		send := make(chan StreamFrame, streamBuffer)
		writerDone := make(chan struct{})
		go h.writeLoop(conn, send, writerDone, cancel, reqLogger)

		//1.- The first frame carries the configuration.
		finish := func(frame StreamFrame) {
			select {
			case send <- frame:
			case <-writerDone:
			}
			close(send)
			<-writerDone
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			reqLogger.Debug("stream closed before configuration", logging.Error(err))
			close(send)
			<-writerDone
			return
		}
		req, err := DecodeSimulateRequest(bytes.NewReader(payload))
		if err != nil {
			finish(errorFrame(err))
			return
		}
		if h.rateLimiter != nil && !h.rateLimiter.Allow(clientKey(r)) {
			reqLogger.Warn("simulation denied: rate limit exceeded")
			finish(StreamFrame{Type: frameError, Error: "too many requests"})
			return
		}

		//2.- Cancel frames and disconnects stop the run cooperatively.
		go readLoop(conn, cancel, reqLogger)

		var lastProgress time.Time
		opts := req.Options()
		opts.OnProgress = func(p simulation.Progress) {
			now := h.now()
			if p.Completed < p.Requested && now.Sub(lastProgress) < progressInterval {
				return
			}
			lastProgress = now
			progress := p
			select {
			case send <- StreamFrame{Type: frameProgress, Progress: &progress}:
			default:
			}
		}
		result, err := h.runner.Simulate(ctx, h.catalog, req.Config, opts)
		if err != nil {
			finish(errorFrame(err))
			return
		}
		finish(StreamFrame{Type: frameResult, Result: result})
	}
}

func (h *HandlerSet) writeLoop(conn *websocket.Conn, send <-chan StreamFrame, done chan<- struct{}, cancel context.CancelFunc, logger *logging.Logger) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		close(done)
	}()
	for {
		select {
		case frame, ok := <-send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				logger.Debug("stream write failed", logging.Error(err))
				cancel()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				cancel()
				return
			}
		}
	}
}

func readLoop(conn *websocket.Conn, cancel context.CancelFunc, logger *logging.Logger) {
	defer cancel()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(payload, &frame) == nil && frame.Type == frameCancel {
			logger.Info("simulation cancel requested over websocket")
			cancel()
		}
	}
}
