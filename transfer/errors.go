package transfer

import "errors"

// ErrHandshakeTimeout indicates the receiver never replied OK within the
// handshake retry budget.
var ErrHandshakeTimeout = errors.New("no OK from receiver after handshake retries")

// ErrChunkRetriesExhausted indicates a chunk was never acknowledged within
// its retry budget. The whole file transfer is abandoned; the sender does
// not skip chunks.
var ErrChunkRetriesExhausted = errors.New("chunk retries exhausted")
