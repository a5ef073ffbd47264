package fileio

import (
	"bufio"
	"hash/crc32"
	"os"
)

// SequentialWriter appends verified chunks to a file in order, keeping a
// progressive CRC32 of everything written so far.
type SequentialWriter struct {
	file      *os.File
	writer    *bufio.Writer
	crc32Hash uint32
}

// New creates new file for writing or returns error upon failing to do so
func (s *SequentialWriter) New(filename string, bufferSize int) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	s.file = file
	s.writer = bufio.NewWriterSize(s.file, bufferSize)
	s.crc32Hash = 0
	return nil
}

// Append writes one chunk and updates the running checksum.
func (s *SequentialWriter) Append(chunk []byte) error {
	if _, err := s.writer.Write(chunk); err != nil {
		return err
	}
	s.crc32Hash = progressiveChecksumCRC32(s.crc32Hash, chunk)
	return nil
}

// Finish flushes remaining bytes, closes the file and returns the CRC32
// checksum of all data written.
func (s *SequentialWriter) Finish() (uint32, error) {
	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return 0, err
	}
	return s.crc32Hash, s.file.Close()
}

// Abort closes the file leaving whatever was written in place. Partial
// output after an interrupted transfer is a documented outcome, not
// something to clean up behind the peer's back.
func (s *SequentialWriter) Abort() error {
	s.writer.Flush()
	return s.file.Close()
}

// progressiveChecksumCRC32 incrementally calculates CRC32 checksum
func progressiveChecksumCRC32(hash uint32, data []byte) uint32 {
	return crc32.Update(hash, crc32.IEEETable, data)
}
