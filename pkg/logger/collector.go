package logger

import (
	"bytes"
	"sync"

	"github.com/goccy/go-json"
)

// Collector guarda uma cópia das linhas de log de uma invocação, para que
// sejam gravadas junto ao registro quando o upload é de debug.
type Collector struct {
	mu    sync.Mutex
	lines []json.RawMessage
}

// NewCollector cria um Collector vazio.
func NewCollector() *Collector {
	return &Collector{}
}

// Write recebe uma ou mais linhas JSON do zerolog.
func (c *Collector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, line := range bytes.Split(p, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			quoted, err := json.Marshal(string(line))
			if err != nil {
				return 0, err
			}
			line = quoted
		}
		c.lines = append(c.lines, append(json.RawMessage(nil), line...))
	}
	return len(p), nil
}

// Len retorna o número de linhas coletadas.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// JSON retorna as linhas como um array JSON indentado com 4 espaços.
func (c *Collector) JSON() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := c.lines
	if lines == nil {
		lines = []json.RawMessage{}
	}
	out, err := json.MarshalIndent(lines, "", "    ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
