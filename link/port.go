package link

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Port is the byte channel the protocol engines run on. It mirrors the
// semantics of a serial device: Read blocks up to the configured read
// timeout and returns (0, nil) when it expires with no data.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(timeout time.Duration) error
	Drain() error
}

// OpenSerial opens the named serial device at the given baud rate and
// applies the read timeout. Stale bytes in both directions are dropped so
// a previous session cannot confuse the handshake.
func OpenSerial(device string, baud int, timeout time.Duration) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}

	port.ResetInputBuffer()
	port.ResetOutputBuffer()

	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"device": device,
		"baud":   baud,
	}).Info("Opened serial port")

	return port, nil
}

// ReadExact reads len(buf) bytes from the port, accumulating across partial
// reads. It returns a short count without error when a read times out, and
// the error itself when the link is lost.
func ReadExact(p Port, buf []byte) (int, error) {
	read := 0
	for read < len(buf) {
		n, err := p.Read(buf[read:])
		if err != nil {
			return read, err
		}
		if n == 0 {
			// Read timeout expired with no further data.
			return read, nil
		}
		read += n
	}
	return read, nil
}
