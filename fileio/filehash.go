package fileio

import (
	"hash/crc32"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// GetFileChecksumCRC32 returns CRC32 checksum of given file
func GetFileChecksumCRC32(file string) uint32 {
	handle, err := os.Open(file)
	if err != nil {
		logrus.WithError(err).Warn("Could not open file for checksum")
		return 0
	}
	defer handle.Close()

	hash := crc32.New(crc32.IEEETable)
	if _, err := io.CopyBuffer(hash, handle, make([]byte, 64*1024)); err != nil {
		logrus.WithError(err).Warn("Could not read file for checksum")
		return 0
	}

	return hash.Sum32()
}
