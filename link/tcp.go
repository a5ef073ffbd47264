package link

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// tcpPort adapts a TCP connection to the Port interface so the same
// protocol can be exercised between hosts without UART hardware. Deadline
// expiry is translated to the serial convention of (0, nil).
type tcpPort struct {
	conn net.Conn

	mu      sync.Mutex
	timeout time.Duration
}

// DialTCP connects to a listening peer and returns the connection as a Port.
func DialTCP(address string, dscp int, timeout time.Duration) (Port, error) {
	_, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}

	tuneTCP(conn, dscp)

	logrus.WithField("address", address).Info("Connected to TCP peer")

	return &tcpPort{conn: conn, timeout: timeout}, nil
}

// ListenTCP waits for a single inbound connection and returns it as a Port.
func ListenTCP(address string, dscp int, timeout time.Duration) (Port, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	// One point-to-point link per process, like the serial device.
	defer l.Close()

	logrus.WithField("address", address).Info("Waiting for TCP peer")

	conn, err := l.Accept()
	if err != nil {
		return nil, err
	}

	tuneTCP(conn, dscp)

	logrus.WithField("peer", conn.RemoteAddr().String()).Info("TCP peer connected")

	return &tcpPort{conn: conn, timeout: timeout}, nil
}

// tuneTCP sets TCP_NODELAY to always immediately send and applies DSCP.
// NOTE: On Windows by default the DSCP value will not be applied.
func tuneTCP(conn net.Conn, dscp int) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	ipv4.NewConn(conn).SetTOS(dscp)
}

func (t *tcpPort) Read(buf []byte) (int, error) {
	t.mu.Lock()
	timeout := t.timeout
	t.mu.Unlock()

	if timeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		t.conn.SetReadDeadline(time.Time{})
	}

	n, err := t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

func (t *tcpPort) Write(buf []byte) (int, error) {
	return t.conn.Write(buf)
}

func (t *tcpPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	t.timeout = timeout
	t.mu.Unlock()
	return nil
}

// Drain is a no-op: the kernel owns the TCP send buffer.
func (t *tcpPort) Drain() error {
	return nil
}

func (t *tcpPort) Close() error {
	return t.conn.Close()
}
