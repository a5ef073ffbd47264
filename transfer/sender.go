package transfer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kumarnitish378/secureFileTransfer-FTDI/constants"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/fileio"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/link"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/protocol"
)

// Sender drives the handshake and stop-and-wait chunk transmission for one
// file at a time. It never advances to the next sequence number until the
// current one has been acknowledged.
type Sender struct {
	port       link.Port
	files      fileio.IOFactory
	state      State
	onProgress func(Progress)
}

// NewSender creates a sender engine on the given port.
func NewSender(port link.Port, factory fileio.IOFactory) *Sender {
	return &Sender{
		port:  port,
		files: factory,
		state: StateIdle,
	}
}

// OnProgress registers a callback invoked at least once per acknowledged
// chunk plus a final 100% sample.
func (s *Sender) OnProgress(cb func(Progress)) {
	s.onProgress = cb
}

// State returns the lifecycle position for the current or last file.
func (s *Sender) State() State {
	return s.state
}

// SendFile transfers one file. A zero-length file completes the handshake
// and immediately sends the end marker with no chunks.
func (s *Sender) SendFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	size := uint64(info.Size())

	header, err := protocol.EncodeHeader(name, size)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.WithFields(logrus.Fields{
			"file": name,
			"crc":  fmt.Sprintf("%08x", fileio.GetFileChecksumCRC32(path)),
		}).Debug("File checksum before send")
	}

	logrus.WithFields(logrus.Fields{
		"file": name,
		"size": size,
	}).Info("Starting file transfer")

	if err := s.handshake(name, header); err != nil {
		s.state = StateFailed
		return err
	}

	if err := s.streamChunks(path, name, size); err != nil {
		s.state = StateFailed
		return err
	}

	s.state = StateComplete
	return nil
}

// handshake repeatedly transmits the header until the receiver replies OK
// or the retry budget runs out.
func (s *Sender) handshake(name string, header []byte) error {
	s.state = StateHandshake

	for attempt := 0; attempt < constants.HEADER_RETRIES; attempt++ {
		if _, err := s.port.Write(header); err != nil {
			return fmt.Errorf("%s: write header: %w", name, err)
		}

		reply := make([]byte, protocol.OKReplyLength)
		n, err := link.ReadExact(s.port, reply)
		if err != nil {
			return fmt.Errorf("%s: read handshake reply: %w", name, err)
		}
		if n == protocol.OKReplyLength && bytes.Equal(reply, protocol.ReplyOK) {
			logrus.WithField("file", name).Info("Handshake ok")
			return nil
		}

		logrus.WithFields(logrus.Fields{
			"file":    name,
			"attempt": attempt + 1,
		}).Debug("No OK yet, retrying header")
		time.Sleep(constants.HEADER_RETRY_DELAY)
	}

	return fmt.Errorf("%s: %w", name, ErrHandshakeTimeout)
}

// streamChunks sends the file chunk by chunk and finishes with the end
// marker once the last chunk has been acknowledged.
func (s *Sender) streamChunks(path, name string, size uint64) error {
	reader := s.files.NewReader()
	if err := reader.New(path, constants.CHUNK_SIZE); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer reader.Close()

	s.state = StateTransferring
	sess := newFileSession(name, size)

	for {
		data, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: read chunk: %w", name, err)
		}

		if err := s.sendChunk(sess, data); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		// Wraparound on absurdly long transfers is harmless: the receiver
		// tracks the same counter in lockstep.
		sess.nextSeq++
		sess.bytesTransferred += uint64(len(data))
		s.emit(sess.sample())
	}

	if _, err := s.port.Write(protocol.DoneMarker); err != nil {
		return fmt.Errorf("%s: write end marker: %w", name, err)
	}
	s.port.Drain()

	sess.bytesTransferred = size
	s.emit(sess.sample())

	logrus.WithFields(logrus.Fields{
		"file": name,
		"size": size,
	}).Info("File transfer complete")

	return nil
}

// sendChunk transmits one chunk until it is acknowledged with a matching
// sequence number. NAKs, mismatched ACKs and short reads are all treated
// as transient: back off briefly and resend the same chunk.
func (s *Sender) sendChunk(sess *fileSession, data []byte) error {
	frame := protocol.EncodeChunk(sess.nextSeq, data)

	for attempt := 0; attempt < constants.CHUNK_RETRIES; attempt++ {
		if _, err := s.port.Write(frame); err != nil {
			return fmt.Errorf("write chunk %d: %w", sess.nextSeq, err)
		}

		reply := make([]byte, protocol.ChunkReplyLength)
		n, err := link.ReadExact(s.port, reply)
		if err != nil {
			return fmt.Errorf("read chunk %d reply: %w", sess.nextSeq, err)
		}

		kind, seq := protocol.ParseReply(reply[:n])
		if kind == protocol.ReplyAck && seq == sess.nextSeq {
			return nil
		}

		logrus.WithFields(logrus.Fields{
			"file":    sess.name,
			"seq":     sess.nextSeq,
			"reply":   kind,
			"attempt": attempt + 1,
		}).Warn("Chunk not acknowledged, retrying")
		time.Sleep(constants.CHUNK_RETRY_DELAY)
	}

	return fmt.Errorf("chunk %d: %w", sess.nextSeq, ErrChunkRetriesExhausted)
}

func (s *Sender) emit(p Progress) {
	if s.onProgress != nil {
		s.onProgress(p)
	}
}
