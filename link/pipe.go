package link

import (
	"net"
	"sync"
	"time"
)

// pipePort wraps one end of an in-memory duplex stream with serial-style
// read timeout semantics. Used by tests and loopback experiments.
type pipePort struct {
	conn net.Conn

	mu      sync.Mutex
	timeout time.Duration
}

// Pipe returns both ends of a synchronous in-memory link.
func Pipe() (Port, Port) {
	a, b := net.Pipe()
	return &pipePort{conn: a}, &pipePort{conn: b}
}

func (p *pipePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	timeout := p.timeout
	p.mu.Unlock()

	if timeout > 0 {
		p.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		p.conn.SetReadDeadline(time.Time{})
	}

	n, err := p.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

func (p *pipePort) Write(buf []byte) (int, error) {
	// Bound writes as well: net.Pipe writes block until the peer reads,
	// and a stopped peer must not wedge the writer forever.
	p.mu.Lock()
	timeout := p.timeout
	p.mu.Unlock()

	if timeout > 0 {
		p.conn.SetWriteDeadline(time.Now().Add(timeout))
	} else {
		p.conn.SetWriteDeadline(time.Time{})
	}

	return p.conn.Write(buf)
}

func (p *pipePort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	p.timeout = timeout
	p.mu.Unlock()
	return nil
}

func (p *pipePort) Drain() error {
	return nil
}

func (p *pipePort) Close() error {
	return p.conn.Close()
}
