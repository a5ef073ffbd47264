package transfer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/kumarnitish378/secureFileTransfer-FTDI/constants"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/fileio"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/link"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/protocol"
)

// Receiver scans the link for transfer headers and accepts an unbounded
// sequence of files, verifying every chunk before it is written. Stray
// bytes between transfers are discarded, never an error.
type Receiver struct {
	port       link.Port
	files      fileio.IOFactory
	state      State
	onProgress func(Progress)
}

// NewReceiver creates a receiver engine on the given port.
func NewReceiver(port link.Port, factory fileio.IOFactory) *Receiver {
	return &Receiver{
		port:  port,
		files: factory,
		state: StateIdle,
	}
}

// OnProgress registers a callback invoked at least once per accepted chunk.
func (r *Receiver) OnProgress(cb func(Progress)) {
	r.onProgress = cb
}

// State returns the lifecycle position for the current or last file.
func (r *Receiver) State() State {
	return r.state
}

// AcceptLoop listens for incoming transfers until the stop channel is
// closed. The stop signal is observed between bounded reads, so the port
// must have a read timeout configured. Stopping mid-transfer leaves the
// partial output file in place.
func (r *Receiver) AcceptLoop(outdir string, stop <-chan struct{}) error {
	if err := os.MkdirAll(outdir, os.ModePerm); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	logrus.WithField("outdir", outdir).Info("Receiver listening")

	for {
		r.state = StateIdle

		name, size, err := r.scanHeader(stop)
		if err != nil {
			return err
		}
		if name == "" {
			// Stop requested while idle.
			return nil
		}

		// A single OK reply; the sender's handshake retry loop compensates
		// for one that is lost in transit.
		if _, err := r.port.Write(protocol.ReplyOK); err != nil {
			return fmt.Errorf("write handshake reply: %w", err)
		}

		outpath := filepath.Join(outdir, filepath.Base(name))
		logrus.WithFields(logrus.Fields{
			"file": name,
			"size": size,
			"path": outpath,
		}).Info("Incoming file")

		if err := r.receiveFile(outpath, name, size, stop); err != nil {
			return err
		}
		if stopRequested(stop) {
			return nil
		}
	}
}

// scanHeader consumes the inbound stream byte by byte until the header
// magic is seen, then reads the name and size fields. It returns an empty
// name when stopped, and falls back to scanning when a header is cut short.
func (r *Receiver) scanHeader(stop <-chan struct{}) (string, uint64, error) {
	window := make([]byte, protocol.MagicLength)

	for {
		for !bytes.Equal(window, protocol.HeaderMagic) {
			if stopRequested(stop) {
				return "", 0, nil
			}
			b := make([]byte, 1)
			n, err := r.port.Read(b)
			if err != nil {
				return "", 0, fmt.Errorf("scan header: %w", err)
			}
			if n == 0 {
				continue
			}
			copy(window, window[1:])
			window[protocol.MagicLength-1] = b[0]
		}

		r.state = StateHandshake

		lenBuf := make([]byte, 1)
		if n, err := link.ReadExact(r.port, lenBuf); err != nil {
			return "", 0, fmt.Errorf("scan header: %w", err)
		} else if n < 1 || lenBuf[0] == 0 {
			window = make([]byte, protocol.MagicLength)
			continue
		}

		nameBuf := make([]byte, lenBuf[0])
		if n, err := link.ReadExact(r.port, nameBuf); err != nil {
			return "", 0, fmt.Errorf("scan header: %w", err)
		} else if n < len(nameBuf) {
			window = make([]byte, protocol.MagicLength)
			continue
		}

		sizeBuf := make([]byte, protocol.SizeFieldLength)
		if n, err := link.ReadExact(r.port, sizeBuf); err != nil {
			return "", 0, fmt.Errorf("scan header: %w", err)
		} else if n < len(sizeBuf) {
			window = make([]byte, protocol.MagicLength)
			continue
		}

		return string(nameBuf), binary.BigEndian.Uint64(sizeBuf), nil
	}
}

// receiveFile runs the chunk-acceptance loop for one file until the end
// marker is observed or the loop is stopped.
func (r *Receiver) receiveFile(outpath, name string, size uint64, stop <-chan struct{}) error {
	writer := r.files.NewWriter()
	if err := writer.New(outpath, constants.CHUNK_SIZE); err != nil {
		// The OK is already out; the sender will exhaust its retries.
		logrus.WithError(err).WithField("path", outpath).Error("Could not open output file")
		return nil
	}

	r.state = StateTransferring
	sess := newFileSession(name, size)

	for {
		if stopRequested(stop) {
			writer.Abort()
			logrus.WithField("file", name).Warn("Stopped mid-transfer, partial file left in place")
			return nil
		}

		window := make([]byte, protocol.MagicLength)
		n, err := link.ReadExact(r.port, window)
		if err != nil {
			writer.Abort()
			return fmt.Errorf("read chunk: %w", err)
		}
		if n == 0 {
			// Idle interval; go around and check the stop flag.
			continue
		}
		if n < protocol.MagicLength {
			continue
		}

		if bytes.Equal(window, protocol.DoneMarker) {
			crc, err := writer.Finish()
			if err != nil {
				logrus.WithError(err).WithField("path", outpath).Error("Could not finalize output file")
				return nil
			}
			sess.bytesTransferred = size
			r.emit(sess.sample())
			r.state = StateComplete
			logrus.WithFields(logrus.Fields{
				"file": name,
				"path": outpath,
				"size": size,
				"crc":  fmt.Sprintf("%08x", crc),
			}).Info("File received")
			return nil
		}

		r.acceptChunk(writer, sess, window)
	}
}

// acceptChunk reads the remainder of a chunk frame whose first four bytes
// are already in hand, verifies it and replies ACK or NAK. Nothing is ever
// written on NAK.
func (r *Receiver) acceptChunk(writer fileio.FileWriter, sess *fileSession, window []byte) {
	rest := make([]byte, protocol.ChunkHeaderLength-protocol.MagicLength)
	if n, err := link.ReadExact(r.port, rest); err != nil || n < len(rest) {
		// Cannot even name a sequence to reject; the sender times out.
		return
	}
	seq, length := protocol.DecodeChunkHeader(append(window, rest...))

	payload := make([]byte, length)
	if n, err := link.ReadExact(r.port, payload); err != nil || n < len(payload) {
		r.port.Write(protocol.EncodeNak(seq))
		return
	}

	crcBuf := make([]byte, protocol.ChecksumLength)
	if n, err := link.ReadExact(r.port, crcBuf); err != nil || n < len(crcBuf) {
		r.port.Write(protocol.EncodeNak(seq))
		return
	}

	if protocol.Checksum(payload) != binary.BigEndian.Uint32(crcBuf) {
		logrus.WithFields(logrus.Fields{
			"file": sess.name,
			"seq":  seq,
		}).Warn("Checksum mismatch, rejecting chunk")
		r.port.Write(protocol.EncodeNak(seq))
		return
	}

	switch {
	case seq == sess.nextSeq:
		if err := writer.Append(payload); err != nil {
			logrus.WithError(err).WithField("file", sess.name).Error("Write failed, rejecting chunk")
			r.port.Write(protocol.EncodeNak(seq))
			return
		}
		sess.nextSeq++
		sess.bytesTransferred += uint64(length)
		r.port.Write(protocol.EncodeAck(seq))
		r.emit(sess.sample())
	case seq < sess.nextSeq:
		// Already persisted; the sender must have lost our ACK. Re-ACK
		// without writing so the payload is never duplicated.
		r.port.Write(protocol.EncodeAck(seq))
	default:
		// Ahead of the expected sequence. Stop-and-wait never skips, so
		// this chunk cannot be accepted yet.
		r.port.Write(protocol.EncodeNak(seq))
	}
}

func (r *Receiver) emit(p Progress) {
	if r.onProgress != nil {
		r.onProgress(p)
	}
}

func stopRequested(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
