package transfer

import "time"

// Progress is one sample of transfer progress, emitted at least once per
// chunk. Presentation layers subscribe to these instead of parsing text.
type Progress struct {
	File       string
	BytesDone  uint64
	BytesTotal uint64
	Percent    float64
	Throughput float64 // bytes per second
	ETA        time.Duration
	HasETA     bool // false while throughput is still unknown
}

// fileSession is the per-file bookkeeping of one transfer in one direction.
type fileSession struct {
	name             string
	totalSize        uint64
	nextSeq          uint32
	bytesTransferred uint64
	startTime        time.Time
}

func newFileSession(name string, totalSize uint64) *fileSession {
	return &fileSession{
		name:      name,
		totalSize: totalSize,
		startTime: time.Now(),
	}
}

// sample derives a progress snapshot from the session counters.
func (f *fileSession) sample() Progress {
	p := Progress{
		File:       f.name,
		BytesDone:  f.bytesTransferred,
		BytesTotal: f.totalSize,
		Percent:    100,
	}
	if f.totalSize > 0 {
		p.Percent = float64(f.bytesTransferred) / float64(f.totalSize) * 100
	}

	elapsed := time.Since(f.startTime).Seconds()
	if elapsed > 0 && f.bytesTransferred > 0 {
		p.Throughput = float64(f.bytesTransferred) / elapsed
		remaining := float64(f.totalSize - f.bytesTransferred)
		p.ETA = time.Duration(remaining / p.Throughput * float64(time.Second))
		p.HasETA = true
	}
	return p
}
