package health

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/pkg/nativelog"
	"github.com/trendjack/core/internal/pkg/response"
	"github.com/trendjack/core/internal/pkg/sse"
)

const logStreamBuffer = 64

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

// listLogs GET /health/logs
func (h *handler) listLogs(c *gin.Context) {
	items, err := scanLogDir(h.deps.LogDir)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

// streamLogs GET /health/logs/stream tails new log lines as SSE.
func (h *handler) streamLogs(c *gin.Context) {
	id, lines := nativelog.Subscribe(logStreamBuffer)
	defer nativelog.Unsubscribe(id)

	sse.Open(c)
	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			sse.Write(c, "log", strings.TrimRight(line, "\n"))
		}
	}
}

// readLog GET /health/logs/file/:filename
func (h *handler) readLog(c *gin.Context) {
	path, ok := h.logPath(c)
	if !ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		response.NotFoundMsg(c, "log file not found")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// deleteLog DELETE /health/logs/file/:filename. Today's file is truncated
// because the writer still holds it open.
func (h *handler) deleteLog(c *gin.Context) {
	path, ok := h.logPath(c)
	if !ok {
		return
	}
	var err error
	if filepath.Base(path) == nativelog.TodayFilename(time.Now()) {
		err = os.Truncate(path, 0)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// logPath resolves :filename inside the log dir, answering 422 for names
// that are not plain .log files.
func (h *handler) logPath(c *gin.Context) (string, bool) {
	name := filepath.Base(strings.TrimSpace(c.Param("filename")))
	if name == ".." || filepath.Ext(name) != ".log" || name == ".log" {
		response.UnprocessableEntity(c, "invalid filename")
		return "", false
	}
	return filepath.Join(h.deps.LogDir, name), true
}

func scanLogDir(dir string) ([]logItem, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []logItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	items := make([]logItem, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, logItem{
			Size:     formatByteSize(info.Size()),
			Filename: e.Name(),
			Created:  info.ModTime().UnixMilli(),
		})
	}
	slices.SortFunc(items, func(a, b logItem) int { return cmp.Compare(b.Created, a.Created) })
	return items, nil
}

func formatByteSize(size int64) string {
	const kb, mb = 1 << 10, 1 << 20
	switch {
	case size >= mb:
		return fmt.Sprintf("%.2f MB", float64(size)/mb)
	case size >= kb:
		return fmt.Sprintf("%.2f KB", float64(size)/kb)
	}
	return fmt.Sprintf("%d B", size)
}
