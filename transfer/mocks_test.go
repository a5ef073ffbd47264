package transfer

import (
	"bytes"
	"sync"
	"time"
)

// scriptedPort is a fake link whose reads replay a fixed script and whose
// writes are recorded. An empty script entry simulates a read timeout.
type scriptedPort struct {
	mu     sync.Mutex
	script [][]byte
	writes [][]byte
}

func newScriptedPort(script ...[]byte) *scriptedPort {
	return &scriptedPort{script: script}
}

func (p *scriptedPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.script) == 0 {
		return 0, nil // timeout, nothing scripted
	}
	entry := p.script[0]
	p.script = p.script[1:]
	if len(entry) == 0 {
		return 0, nil // scripted timeout
	}

	n := copy(buf, entry)
	if n < len(entry) {
		p.script = append([][]byte{entry[n:]}, p.script...)
	}
	return n, nil
}

func (p *scriptedPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), buf...))
	return len(buf), nil
}

func (p *scriptedPort) SetReadTimeout(time.Duration) error { return nil }

func (p *scriptedPort) Drain() error { return nil }

func (p *scriptedPort) Close() error { return nil }

// writesWithPrefix counts recorded writes starting with the given tag.
func (p *scriptedPort) writesWithPrefix(tag []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, w := range p.writes {
		if bytes.HasPrefix(w, tag) {
			count++
		}
	}
	return count
}

func (p *scriptedPort) lastWrite() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.writes) == 0 {
		return nil
	}
	return p.writes[len(p.writes)-1]
}
