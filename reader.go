package main

import (
	"io"

	"github.com/pkg/errors"
)

const readerBufSize = 4096

// byteReader is a small buffered reader over a source file with one-byte
// pushback, grounded on original_source/src/lex.c's BufferedFile
// (tcc_inp/peek_char/unget_char): refill on exhaustion, track line number,
// remember the last byte returned so a single Unget can restore it.
type byteReader struct {
	r    io.Reader
	buf  [readerBufSize]byte
	pos  int
	len  int
	line int

	lastByte byte
	hasLast  bool
	ungot    bool

	eof bool
}

// newByteReader wraps r for lexing, starting at line 1.
func newByteReader(r io.Reader) *byteReader {
	return &byteReader{r: r, line: 1}
}

func (b *byteReader) fill() error {
	n, err := b.r.Read(b.buf[:])
	b.pos = 0
	b.len = n
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		if errors.Is(err, io.EOF) {
			b.eof = true
		}
		return err
	}
	return nil
}

// NextByte returns the next byte of input, or io.EOF once the source is
// exhausted. A '\n' increments the line counter as it is consumed.
func (b *byteReader) NextByte() (byte, error) {
	if b.ungot {
		b.ungot = false
		return b.lastByte, nil
	}
	if b.pos >= b.len {
		if b.eof {
			return 0, io.EOF
		}
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	c := b.buf[b.pos]
	b.pos++
	if c == '\n' {
		b.line++
	}
	b.lastByte = c
	b.hasLast = true
	return c, nil
}

// Unget pushes the most recently returned byte back onto the stream. Only
// a single level of pushback is supported, matching the original's
// unget_char contract.
func (b *byteReader) Unget() {
	if !b.hasLast {
		return
	}
	if b.lastByte == '\n' {
		b.line--
	}
	b.ungot = true
}

// Line reports the current 1-based line number.
func (b *byteReader) Line() int { return b.line }
