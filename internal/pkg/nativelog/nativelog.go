// Package nativelog builds the process logger: console output teed to a
// daily log file, with every written frame fanned out to live subscribers.
package nativelog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLogDir overrides the log directory.
const EnvLogDir = "TRENDJACK_LOG_DIR"

const (
	defaultSubBuffer = 128
	filePerm         = 0o644
	dirPerm          = 0o755
)

// ResolveDir returns TRENDJACK_LOG_DIR or ./logs.
func ResolveDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvLogDir)); dir != "" {
		return dir
	}
	return filepath.Join(".", "logs")
}

// TodayFilename returns the log file name for the day of now.
func TodayFilename(now time.Time) string {
	return "stdout_" + now.Format("1-2-06") + ".log"
}

// Writer appends to one file per day. The file is reopened when the day
// changes or after the file was removed or truncated from outside.
type Writer struct {
	mu   sync.Mutex
	dir  string
	now  func() time.Time
	name string
	file *os.File
	hub  *Hub
}

// NewWriter creates dir and returns a writer into it. An empty dir falls
// back to ResolveDir. Written frames are published on the default hub.
func NewWriter(dir string) (*Writer, error) {
	if dir = strings.TrimSpace(dir); dir == "" {
		dir = ResolveDir()
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}
	_ = os.Setenv(EnvLogDir, dir)
	return &Writer{dir: dir, now: time.Now, hub: defaultHub}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.current()
	if err != nil {
		return 0, err
	}
	n, err := f.Write(p)
	if n > 0 {
		w.hub.Publish(string(p[:n]))
	}
	return n, err
}

// current returns the open file for today, rotating when needed.
func (w *Writer) current() (*os.File, error) {
	name := TodayFilename(w.now())
	if w.file != nil && w.name == name {
		if _, err := os.Stat(filepath.Join(w.dir, name)); err == nil {
			return w.file, nil
		}
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, err
	}
	w.file, w.name = f, name
	return f, nil
}

func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close releases the open log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Hub fans log frames out to subscribers. Slow subscribers miss frames
// instead of blocking the writer.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan string
}

func NewHub() *Hub { return &Hub{subs: make(map[int]chan string)} }

var defaultHub = NewHub()

// Subscribe registers a subscriber with the given channel buffer.
func (h *Hub) Subscribe(buffer int) (int, <-chan string) {
	if buffer <= 0 {
		buffer = defaultSubBuffer
	}
	ch := make(chan string, buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (h *Hub) Publish(frame string) {
	if frame == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Subscribe, Unsubscribe and Publish operate on the hub fed by NewWriter.
func Subscribe(buffer int) (int, <-chan string) { return defaultHub.Subscribe(buffer) }

func Unsubscribe(id int) { defaultHub.Unsubscribe(id) }

func Publish(frame string) { defaultHub.Publish(frame) }

// Options configures NewZapLogger.
type Options struct {
	Dir     string
	Level   string    // debug, info, warn, error
	Console io.Writer // defaults to os.Stdout
}

// NewZapLogger returns a logger writing console-encoded entries to Console
// and to the daily file under Dir.
func NewZapLogger(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw := strings.ToLower(strings.TrimSpace(opts.Level)); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
	}
	writer, err := NewWriter(opts.Dir)
	if err != nil {
		return nil, err
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	atom := zap.NewAtomicLevelAt(level)
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(console)), atom),
		zapcore.NewCore(enc, writer, atom),
	)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	_ = zap.RedirectStdLog(logger)
	return logger, nil
}
