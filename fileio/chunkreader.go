package fileio

import (
	"bufio"
	"io"
	"os"
)

// ChunkedReader reads a file in fixed-size chunks. The last chunk of a
// file is shorter; a zero-length file yields no chunks at all.
type ChunkedReader struct {
	file      *os.File
	reader    *bufio.Reader
	chunkSize int
}

// New opens file for reading or returns error upon failing to do so
func (c *ChunkedReader) New(filename string, chunkSize int) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	c.file = file
	c.chunkSize = chunkSize
	c.reader = bufio.NewReaderSize(c.file, chunkSize)
	return nil
}

// Next returns the next chunk of the file, or io.EOF once it has been
// fully consumed.
func (c *ChunkedReader) Next() ([]byte, error) {
	buf := make([]byte, c.chunkSize)
	read, err := io.ReadFull(c.reader, buf)
	if read > 0 {
		return buf[:read], nil
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return nil, err
}

// Close releases the file handle.
func (c *ChunkedReader) Close() error {
	return c.file.Close()
}
