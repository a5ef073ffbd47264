package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/kumarnitish378/secureFileTransfer-FTDI/constants"
)

// Frame tags and fixed-width sizes of the wire format. All integers are
// big-endian. Every frame is self-delimiting by fixed-width fields; the
// receiver tells DONE apart from a chunk by reading a 4-byte window first
// and testing it against the sentinel before treating it as a chunk header.
var (
	HeaderMagic = []byte("FILE") // Starts a transfer header
	ReplyOK     = []byte("OK")   // Handshake reply
	AckTag      = []byte("ACK")  // Chunk accepted
	NakTag      = []byte("NAK")  // Chunk rejected, resend
	DoneMarker  = []byte("DONE") // End of chunk stream
)

const (
	MagicLength       = 4 // len(HeaderMagic) == len(DoneMarker)
	OKReplyLength     = 2 // "OK"
	ChunkHeaderLength = 6 // seq (4) + length (2)
	ChecksumLength    = 4 // CRC32
	ChunkReplyLength  = 7 // "ACK"/"NAK" + seq (4)
	SizeFieldLength   = 8 // u64 byte count in the header
)

// ReplyKind classifies a chunk reply read from the link.
type ReplyKind uint8

const (
	ReplyNone ReplyKind = iota // Short read or garbage; treated as no response
	ReplyAck
	ReplyNak
)

func (r ReplyKind) String() string {
	switch r {
	case ReplyAck:
		return "ack"
	case ReplyNak:
		return "nak"
	}
	return "none"
}

var ErrNameTooLong = errors.New("file name exceeds 255 bytes")

var ErrEmptyName = errors.New("file name is empty")

// EncodeHeader builds the transfer header frame for a file of given base
// name and total size in bytes.
func EncodeHeader(name string, size uint64) ([]byte, error) {
	if len(name) == 0 {
		return nil, ErrEmptyName
	}
	if len(name) > constants.MAX_NAME_LENGTH {
		return nil, ErrNameTooLong
	}

	buffer := bytes.NewBuffer(make([]byte, 0, MagicLength+1+len(name)+SizeFieldLength))
	buffer.Write(HeaderMagic)
	buffer.WriteByte(byte(len(name)))
	buffer.WriteString(name)
	binary.Write(buffer, binary.BigEndian, size)

	return buffer.Bytes(), nil
}

// EncodeChunk builds a chunk frame with the CRC32 of the payload appended.
func EncodeChunk(seq uint32, payload []byte) []byte {
	buffer := bytes.NewBuffer(make([]byte, 0, ChunkHeaderLength+len(payload)+ChecksumLength))
	binary.Write(buffer, binary.BigEndian, seq)
	binary.Write(buffer, binary.BigEndian, uint16(len(payload)))
	buffer.Write(payload)
	binary.Write(buffer, binary.BigEndian, Checksum(payload))

	return buffer.Bytes()
}

// DecodeChunkHeader decodes the fixed 6-byte chunk header.
func DecodeChunkHeader(header []byte) (seq uint32, length uint16) {
	seq = binary.BigEndian.Uint32(header[0:4])
	length = binary.BigEndian.Uint16(header[4:6])
	return
}

// EncodeAck builds the 7-byte positive chunk reply.
func EncodeAck(seq uint32) []byte {
	return binary.BigEndian.AppendUint32(append(make([]byte, 0, ChunkReplyLength), AckTag...), seq)
}

// EncodeNak builds the 7-byte negative chunk reply.
func EncodeNak(seq uint32) []byte {
	return binary.BigEndian.AppendUint32(append(make([]byte, 0, ChunkReplyLength), NakTag...), seq)
}

// ParseReply classifies a chunk reply buffer. Anything other than a full
// 7-byte ACK or NAK is ReplyNone and the sender is expected to retry.
func ParseReply(reply []byte) (ReplyKind, uint32) {
	if len(reply) < ChunkReplyLength {
		return ReplyNone, 0
	}
	seq := binary.BigEndian.Uint32(reply[3:7])
	switch {
	case bytes.Equal(reply[0:3], AckTag):
		return ReplyAck, seq
	case bytes.Equal(reply[0:3], NakTag):
		return ReplyNak, seq
	}
	return ReplyNone, 0
}

// Checksum returns the CRC32 (IEEE) of the payload.
func Checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}
