package http

import (
	"encoding/json"
	"net/http"
	"time"

	"deadline-quiz-service/internal/domain"
	"deadline-quiz-service/internal/log"
	"github.com/gorilla/websocket"
)

// closeGracePeriod bounds how long a client may take to answer the close frame.
var closeGracePeriod = 5 * time.Second

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`

	closeAfter bool
}

type tickPayload struct {
	RemainingSeconds int64                `json:"remainingSeconds"`
	EndTime          time.Time            `json:"endTime"`
	Status           domain.SessionStatus `json:"status"`
}

// serveTimer streams the remaining time of a session until it expires.
// Clients may submit answers over the same connection.
func (h *Handler) serveTimer(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if _, err := h.service.State(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	// Only the writer goroutine touches the connection for writes.
	go func() {
		defer close(writerDone)
		var closeTimer *time.Timer
		defer func() {
			if closeTimer != nil {
				closeTimer.Stop()
			}
		}()
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debugf("ws write error: %v", err)
				failed = true
				continue
			}
			if msg.closeAfter && closeTimer == nil {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session expired"), time.Now().Add(time.Second))
				// the reader owns read deadlines; dropping the socket unblocks it instead
				closeTimer = time.AfterFunc(closeGracePeriod, func() { _ = conn.Close() })
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(h.opts.TimerInterval)
		defer ticker.Stop()
		for {
			state, err := h.service.State(r.Context(), token)
			if err != nil {
				select {
				case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
				case <-closeSignals:
				}
				return
			}
			msg := outboundMessage[any]{Type: "tick", Payload: toTick(state)}
			if state.Status == domain.StatusExpired {
				msg.Type = "expired"
				msg.closeAfter = true
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			}
			if msg.closeAfter {
				return
			}
			select {
			case <-ticker.C:
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answers":
			var payload answersRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answers payload"}}
				continue
			}
			result, err := h.service.Submit(r.Context(), token, payload.Answers)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Recorded: &result.Recorded, Failed: result.Failed}}
				continue
			}
			send <- outboundMessage[any]{Type: "submitted", Payload: result}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

func toTick(state domain.SessionState) tickPayload {
	return tickPayload{
		RemainingSeconds: int64(state.Remaining / time.Second),
		EndTime:          state.EndTime,
		Status:           state.Status,
	}
}
