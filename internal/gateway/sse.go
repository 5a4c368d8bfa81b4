package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/isharaux/ussd-gateway/internal/events"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type sseMessage struct {
	event string
	data  []byte
}

// handleEvents streams bus events to the client as SSE. Every event name
// the bus publishes is forwarded verbatim, so a browser EventSource can
// select with addEventListener("ussdEvent", ...).
func (s *Server) handleEvents(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Buffered so a slow client cannot stall bus publishers; overflow
	// drops the event for this subscriber only.
	queue := make(chan sseMessage, 64)
	forward := func(name string) events.Handler {
		return func(payload any) {
			data, err := json.Marshal(payload)
			if err != nil {
				s.logger.Error("failed to marshal event payload",
					zap.String("event", name),
					zap.Error(err))
				return
			}
			select {
			case queue <- sseMessage{event: name, data: data}:
			default:
				s.logger.Warn("dropping event for slow SSE client",
					zap.String("event", name))
			}
		}
	}

	subs := []*events.Subscription{
		s.bus.Subscribe(events.EventUssd, forward(events.EventUssd)),
		s.bus.Subscribe(events.EventUssdError, forward(events.EventUssdError)),
		s.bus.Subscribe(events.EventSessionState, forward(events.EventSessionState)),
		s.bus.Subscribe(events.EventSimState, forward(events.EventSimState)),
	}
	defer func() {
		for _, sub := range subs {
			sub.Remove()
		}
	}()

	// Initial comment so clients know the stream is open.
	if _, err := fmt.Fprint(c.Writer, ": connected\n\n"); err != nil {
		return
	}
	c.Writer.Flush()

	for {
		select {
		case msg := <-queue:
			if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.event, msg.data); err != nil {
				s.logger.Error("failed to send SSE message", zap.Error(err))
				return
			}
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		case <-s.shutdownCh:
			return
		}
	}
}
