package main

import (
	"fmt"
	"strings"

	"github.com/kumarnitish378/secureFileTransfer-FTDI/transfer"
)

const barWidth = 34

// renderProgress draws a single-line progress bar from typed progress
// events. Presentation only; the engines never print.
func renderProgress(p transfer.Progress) {
	filled := int(float64(barWidth) * p.Percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"

	eta := "--:--"
	if p.HasETA {
		secs := int(p.ETA.Seconds())
		eta = fmt.Sprintf("%02d:%02d", secs/60, secs%60)
	}

	fmt.Printf("\r%s %6.2f%% %d/%d bytes %7.2f KB/s ETA %s",
		bar, p.Percent, p.BytesDone, p.BytesTotal, p.Throughput/1024, eta)

	if p.BytesDone >= p.BytesTotal {
		fmt.Println()
	}
}
