package serial

import (
	"fmt"
	"io"
	"sync"

	"els/core"
	"els/protocol"
)

// StatusWriter frames drive snapshots onto a byte stream
type StatusWriter struct {
	mu     sync.Mutex
	w      io.Writer
	out    *protocol.ScratchOutput
	framer *protocol.Framer
}

// NewStatusWriter creates a writer sending status frames to w
func NewStatusWriter(w io.Writer) *StatusWriter {
	out := protocol.NewScratchOutput()
	return &StatusWriter{
		w:      w,
		out:    out,
		framer: protocol.NewFramer(out),
	}
}

// WriteSnapshot encodes and sends one status frame
func (s *StatusWriter) WriteSnapshot(snap core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.Reset()
	err := s.framer.EncodeFrame(func(out protocol.OutputBuffer) {
		core.EncodeStatus(out, snap)
	})
	if err != nil {
		return err
	}
	if _, err := s.w.Write(s.out.Result()); err != nil {
		return fmt.Errorf("write status frame: %w", err)
	}
	return nil
}
