package constants

import "time"

const (
	CHUNK_SIZE           = 4096                   // Fixed file chunk size. Last chunk of a file may be shorter
	MAX_NAME_LENGTH      = 255                    // File name length limit imposed by the 1-byte name length field
	HEADER_RETRIES       = 8                      // Handshake attempts before giving up on a file
	CHUNK_RETRIES        = 5                      // Per-chunk transmission attempts before failing the file
	HEADER_RETRY_DELAY   = 150 * time.Millisecond // Backoff between handshake attempts
	CHUNK_RETRY_DELAY    = 50 * time.Millisecond  // Backoff between chunk retransmissions
	DEFAULT_BAUD_RATE    = 115200                 // Safe default for most USB-UART bridges
	DEFAULT_READ_TIMEOUT = time.Second            // Bounded reads so stop signals are observed promptly
	DEFAULT_TCP_PORT     = 6969                   // Nice
	DEFAULT_DSCP         = 0x0A                   // QoS for high throughput (TCP link only)
)
