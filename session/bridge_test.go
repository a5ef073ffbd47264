package session

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumarnitish378/secureFileTransfer-FTDI/link"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/transfer"
)

// loopback wires two bridges together over an in-memory link: one acting
// as the receiver, one as the sender.
func loopback(t *testing.T) (sender, receiver *Bridge, outdir string) {
	t.Helper()

	a, b := link.Pipe()
	a.SetReadTimeout(100 * time.Millisecond)
	b.SetReadTimeout(500 * time.Millisecond)

	receiver = New(a, 100*time.Millisecond)
	sender = New(b, 500*time.Millisecond)
	outdir = t.TempDir()

	require.NoError(t, receiver.StartReceiveLoop(outdir))

	t.Cleanup(func() {
		sender.Close()
		receiver.Close()
	})

	return sender, receiver, outdir
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func waitForFile(t *testing.T, path string, want []byte) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && bytes.Equal(data, want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %s never reached expected contents", path)
}

func TestBridge_LoopbackTransfer(t *testing.T) {
	// Scenario: a 10000-byte file crosses the link as chunks 4096, 4096
	// and 1808, and the received copy is byte-for-byte identical.
	sender, _, outdir := loopback(t)

	data := bytes.Repeat([]byte{0x5A}, 10000)
	path := writeTemp(t, "big.bin", data)

	var mu sync.Mutex
	var done []uint64
	sender.OnProgress(func(p transfer.Progress) {
		mu.Lock()
		done = append(done, p.BytesDone)
		mu.Unlock()
	})

	require.NoError(t, sender.SendFiles([]string{path}))

	waitForFile(t, filepath.Join(outdir, "big.bin"), data)

	// One acknowledged chunk per progress sample, in order, plus the
	// final 100% sample.
	mu.Lock()
	assert.Equal(t, []uint64{4096, 8192, 10000, 10000}, done)
	mu.Unlock()
}

func TestBridge_LoopbackZeroLengthFile(t *testing.T) {
	sender, _, outdir := loopback(t)

	path := writeTemp(t, "empty.bin", nil)
	require.NoError(t, sender.SendFiles([]string{path}))

	waitForFile(t, filepath.Join(outdir, "empty.bin"), []byte{})
}

func TestBridge_BatchContinuesPastMissingFile(t *testing.T) {
	sender, _, outdir := loopback(t)

	data := []byte("still delivered")
	good := writeTemp(t, "good.bin", data)
	missing := filepath.Join(t.TempDir(), "missing.bin")

	err := sender.SendFiles([]string{missing, good})
	assert.Error(t, err)

	waitForFile(t, filepath.Join(outdir, "good.bin"), data)
}

func TestBridge_SendFilesSkipsBlankEntries(t *testing.T) {
	sender, _, outdir := loopback(t)

	data := []byte("payload")
	good := writeTemp(t, "good.bin", data)

	require.NoError(t, sender.SendFiles([]string{"", "  ", good}))
	waitForFile(t, filepath.Join(outdir, "good.bin"), data)
}

func TestBridge_StopReceiveLoopWhileIdle(t *testing.T) {
	a, b := link.Pipe()
	defer b.Close()
	a.SetReadTimeout(100 * time.Millisecond)

	bridge := New(a, 100*time.Millisecond)
	outdir := t.TempDir()
	require.NoError(t, bridge.StartReceiveLoop(outdir))

	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	bridge.StopReceiveLoop()
	assert.Less(t, time.Since(start), time.Second)

	entries, err := os.ReadDir(outdir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, bridge.Close())
}

func TestBridge_StartReceiveLoopTwiceFails(t *testing.T) {
	a, b := link.Pipe()
	defer b.Close()
	a.SetReadTimeout(100 * time.Millisecond)

	bridge := New(a, 100*time.Millisecond)
	defer bridge.Close()

	require.NoError(t, bridge.StartReceiveLoop(t.TempDir()))
	assert.Error(t, bridge.StartReceiveLoop(t.TempDir()))
}

func TestBridge_ReceiveLoopRequiresTimeout(t *testing.T) {
	a, b := link.Pipe()
	defer a.Close()
	defer b.Close()

	bridge := New(a, 0)
	assert.Error(t, bridge.StartReceiveLoop(t.TempDir()))
}
