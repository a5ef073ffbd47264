package fileio

// FileReader yields a file as fixed-size chunks.
type FileReader interface {
	New(filename string, chunkSize int) error
	Next() ([]byte, error)
	Close() error
}

// FileWriter persists verified chunks in order.
type FileWriter interface {
	New(filename string, bufferSize int) error
	Append(chunk []byte) error
	Finish() (uint32, error)
	Abort() error
}

// IOFactory creates reader/writer instances for the transfer engines.
type IOFactory interface {
	NewReader() FileReader
	NewWriter() FileWriter
}

// BufferedFactory is the default factory returning buffered reader/writer instances
type BufferedFactory struct{}

func (b *BufferedFactory) NewReader() FileReader {
	return new(ChunkedReader)
}

func (b *BufferedFactory) NewWriter() FileWriter {
	return new(SequentialWriter)
}
