package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Lines пишет по одному конверту на строку.
type Lines struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

func NewLines(w io.Writer) *Lines {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Lines{w: w, enc: enc}
}

func (l *Lines) Write(_ context.Context, env Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(env); err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return nil
}

// Close закрывает writer, если он это умеет (кроме stdout/stderr это
// решает вызывающий).
func (l *Lines) Close() error {
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
