package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// ReaderStats counts what the reader has seen
type ReaderStats struct {
	Frames uint64 // valid frames
	Errors uint64 // malformed or corrupted frames skipped
	Gaps   uint64 // frames lost according to the sequence numbers
}

// Reader parses frames from a byte stream such as a serial port
type Reader struct {
	port   io.Reader
	input  *FifoBuffer
	frames chan Message

	frameCount atomic.Uint64
	errorCount atomic.Uint64
	gapCount   atomic.Uint64

	haveSeq bool
	lastSeq uint8
}

// NewReader creates a reader on port
func NewReader(port io.Reader) *Reader {
	return &Reader{
		port:   port,
		input:  NewFifoBuffer(1024),
		frames: make(chan Message, 16),
	}
}

// Frames delivers parsed frames. It is closed when Run returns.
func (r *Reader) Frames() <-chan Message {
	return r.frames
}

// Stats returns the reader counters
func (r *Reader) Stats() ReaderStats {
	return ReaderStats{
		Frames: r.frameCount.Load(),
		Errors: r.errorCount.Load(),
		Gaps:   r.gapCount.Load(),
	}
}

// Run reads until EOF, a read error or ctx is done. A blocked read is only
// interrupted by closing the port.
func (r *Reader) Run(ctx context.Context) error {
	defer close(r.frames)

	buffer := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.port.Read(buffer)
		if n > 0 {
			r.input.Write(buffer[:n])
			if perr := r.process(ctx); perr != nil {
				return perr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read telemetry: %w", err)
		}
	}
}

// process parses every complete frame in the input buffer
func (r *Reader) process(ctx context.Context) error {
	data := r.input.Data()
	consumed := 0

	for len(data) > 0 {
		if data[0] == MessageValueSync {
			data = data[1:]
			consumed++
			continue
		}

		msg, n, err := ParseFrame(data)
		if errors.Is(err, ErrIncomplete) {
			break
		}
		if err != nil {
			// drop through the next sync byte and try again
			r.errorCount.Add(1)
			skip := bytes.IndexByte(data, MessageValueSync)
			if skip < 0 {
				skip = len(data) - 1
			}
			data = data[skip+1:]
			consumed += skip + 1
			continue
		}

		data = data[n:]
		consumed += n
		r.track(msg.Sequence)

		select {
		case r.frames <- msg:
		case <-ctx.Done():
			r.input.Pop(consumed)
			return ctx.Err()
		}
	}

	r.input.Pop(consumed)
	return nil
}

func (r *Reader) track(seq uint8) {
	r.frameCount.Add(1)
	if r.haveSeq {
		expected := (r.lastSeq + 1) & MessageSeqMask
		if seq != expected {
			r.gapCount.Add(uint64((seq - expected) & MessageSeqMask))
		}
	}
	r.lastSeq = seq
	r.haveSeq = true
}
