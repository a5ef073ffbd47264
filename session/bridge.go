// Package session coordinates the sender and receiver engines over one
// exclusively owned link.
package session

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kumarnitish378/secureFileTransfer-FTDI/constants"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/fileio"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/link"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/transfer"
)

// Bridge owns the link and runs the engines on it: sending synchronously
// in the caller's goroutine, receiving in a cancellable background loop,
// or both at once on the same link.
//
// Known limitation in both mode: the bridge does not demultiplex response
// bytes between the two engines. Peers must drive one transfer direction
// at a time; concurrent opposing transfers can steal each other's replies.
type Bridge struct {
	port    link.Port
	files   fileio.IOFactory
	timeout time.Duration

	mu         sync.Mutex
	onProgress func(transfer.Progress)
	recvStop   chan struct{}
	recvDone   chan struct{}
}

// Open opens the named serial device and returns a bridge owning it.
func Open(device string, baud int, timeout time.Duration) (*Bridge, error) {
	port, err := link.OpenSerial(device, baud, timeout)
	if err != nil {
		return nil, fmt.Errorf("open link: %w", err)
	}
	return New(port, timeout), nil
}

// New wraps an already opened port. Used for TCP links and tests.
func New(port link.Port, timeout time.Duration) *Bridge {
	if timeout > 0 {
		port.SetReadTimeout(timeout)
	}
	return &Bridge{
		port:    port,
		files:   new(fileio.BufferedFactory),
		timeout: timeout,
	}
}

// OnProgress registers a callback for progress samples from both engines.
func (b *Bridge) OnProgress(cb func(transfer.Progress)) {
	b.mu.Lock()
	b.onProgress = cb
	b.mu.Unlock()
}

// SendFiles transfers the given files in order. Missing files and per-file
// failures are logged and skipped so the rest of the batch still goes out.
// The first error observed is returned once the batch finishes.
func (b *Bridge) SendFiles(paths []string) error {
	sender := transfer.NewSender(b.port, b.files)
	sender.OnProgress(b.progressCallback())

	var firstErr error
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			logrus.WithField("path", path).Error("File not found, skipping")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: not a file", path)
			}
			continue
		}
		if err := sender.SendFile(path); err != nil {
			logrus.WithError(err).WithField("path", path).Error("Send failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// StartReceiveLoop launches the accept loop in the background, storing
// received files under outdir. It requires a bounded read timeout on the
// port, otherwise the loop could not observe a stop request.
func (b *Bridge) StartReceiveLoop(outdir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.recvStop != nil {
		return errors.New("receive loop already running")
	}
	if b.timeout <= 0 {
		return errors.New("receive loop requires a bounded read timeout")
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	b.recvStop = stop
	b.recvDone = done

	receiver := transfer.NewReceiver(b.port, b.files)
	receiver.OnProgress(b.progressCallback())

	go func() {
		defer close(done)
		if err := receiver.AcceptLoop(outdir, stop); err != nil {
			logrus.WithError(err).Error("Receive loop terminated")
		}
	}()

	return nil
}

// StopReceiveLoop signals the accept loop to stop and waits for it to
// drain its current bounded read. A transfer in progress is abandoned,
// leaving the partial file in place.
func (b *Bridge) StopReceiveLoop() {
	b.mu.Lock()
	stop, done := b.recvStop, b.recvDone
	b.recvStop, b.recvDone = nil, nil
	b.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)

	select {
	case <-done:
	case <-time.After(2*b.timeout + constants.DEFAULT_READ_TIMEOUT):
		logrus.Warn("Receive loop did not stop in time")
	}
}

// Close stops any background receiving and releases the link.
func (b *Bridge) Close() error {
	b.StopReceiveLoop()
	return b.port.Close()
}

func (b *Bridge) progressCallback() func(transfer.Progress) {
	return func(p transfer.Progress) {
		b.mu.Lock()
		cb := b.onProgress
		b.mu.Unlock()
		if cb != nil {
			cb(p)
		}
	}
}
