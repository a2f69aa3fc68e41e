package run

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/pkg/sse"
	"go.uber.org/zap"
)

const (
	eventChannelPrefix = "trendjack:run:"
	keepAliveInterval  = 15 * time.Second
)

// Message is published on a run's event channel.
type Message struct {
	RunID  string           `json:"run_id"`
	Status models.RunStatus `json:"status"`
	Event  *Event           `json:"event,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// EventChannel is the Redis pub/sub channel of a run.
func EventChannel(runID string) string { return eventChannelPrefix + runID }

func (s *Service) publish(runID string, msg Message) {
	if s.rc == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.rc.Publish(ctx, EventChannel(runID), data); err != nil {
		s.logger.Debug("publish run event failed", zap.String("run", runID), zap.Error(err))
	}
}

// StreamEvents writes a run snapshot followed by live events until the run
// finishes or the client goes away.
func (s *Service) StreamEvents(c *gin.Context, r *models.RunModel) {
	ctx := c.Request.Context()
	sse.Open(c)
	_ = sse.WriteJSON(c, "snapshot", Message{
		RunID:  r.ID,
		Status: r.Status,
		Event:  &Event{Step: r.Step, Progress: r.Progress},
		Error:  r.Error,
	})
	if r.Status.Finished() || s.rc == nil {
		return
	}

	sub := s.rc.Subscribe(ctx, EventChannel(r.ID))
	defer sub.Close()
	ch := sub.Channel()

	// The run may have finished between the snapshot and the subscription.
	if latest, err := s.GetRun(r.ID); err == nil && latest != nil && latest.Status.Finished() {
		_ = sse.WriteJSON(c, "status", Message{RunID: latest.ID, Status: latest.Status, Error: latest.Error})
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.Writer.WriteString(": keep-alive\n\n")
			c.Writer.Flush()
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				continue
			}
			name := "status"
			if msg.Event != nil {
				name = "progress"
			}
			sse.Write(c, name, m.Payload)
			if msg.Status.Finished() {
				return
			}
		}
	}
}
