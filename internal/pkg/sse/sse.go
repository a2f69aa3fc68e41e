// Package sse frames server-sent events onto a gin response.
package sse

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var streamHeaders = [][2]string{
	{"Content-Type", "text/event-stream"},
	{"Cache-Control", "no-cache"},
	{"Connection", "keep-alive"},
	{"X-Accel-Buffering", "no"}, // nginx
}

// Open commits the stream headers so the client sees the connection at once.
func Open(c *gin.Context) {
	for _, h := range streamHeaders {
		c.Header(h[0], h[1])
	}
	c.Status(http.StatusOK)
	c.Writer.Flush()
}

func frame(event, data string) string {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteByte('\n')
	}
	for line := range strings.SplitSeq(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

// Write sends data as one event; multi-line data becomes several data fields.
func Write(c *gin.Context, event, data string) {
	_, _ = c.Writer.WriteString(frame(event, data))
	c.Writer.Flush()
}

func WriteJSON(c *gin.Context, event string, v any) error {
	data, err := json.Marshal(v)
	if err == nil {
		Write(c, event, string(data))
	}
	return err
}
