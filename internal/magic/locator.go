// Package magic finds the start of an embedded payload inside a byte stream
// by searching for the payload's magic header.
package magic

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/ralt/bundlemeta/internal/models"
	"github.com/sirupsen/logrus"
)

// ZipLocalFileHeader is the signature that starts every ZIP (and JAR) local file header
var ZipLocalFileHeader = []byte{0x50, 0x4B, 0x03, 0x04}

// segments is the number of equal slices the reverse strategy splits a source into
const segments = 10

// Locator is a reader that starts exactly at the first byte of a magic
// sequence found in the underlying source. The matched bytes are replayed
// from memory, after which reads pass straight through to the source.
type Locator struct {
	r       *bufio.Reader
	pending []byte
	offset  int64
}

// NewLocator searches src for magic and returns a reader positioned at the
// match. With preferReverse set and a seekable src, the source is searched
// segment by segment starting near its end; otherwise it is scanned once
// from the current position. An empty (non-nil) magic sequence yields a
// plain passthrough reader.
func NewLocator(src io.Reader, magic []byte, preferReverse bool) (*Locator, error) {
	if src == nil {
		return nil, models.NewError(models.ErrPrecondition, "source stream is nil")
	}
	if magic == nil {
		return nil, models.NewError(models.ErrPrecondition, "magic sequence is nil")
	}
	if len(magic) == 0 {
		return &Locator{r: bufio.NewReader(src)}, nil
	}

	table := failureTable(magic)

	if preferReverse {
		if rs, ok := src.(io.ReadSeeker); ok {
			return locateReverse(rs, magic, table)
		}
		logrus.Debug("Source is not seekable, using forward magic header search")
	}

	br := bufio.NewReader(src)
	offset, err := scan(br, magic, table)
	if err != nil {
		return nil, notFound(err)
	}
	return newLocator(br, magic, offset), nil
}

// Offset returns the position of the magic sequence. For the reverse
// strategy it is absolute within the source; for the forward strategy it is
// relative to where the source was positioned when the search began.
func (l *Locator) Offset() int64 {
	return l.offset
}

// Read implements io.Reader
func (l *Locator) Read(p []byte) (int, error) {
	if len(l.pending) > 0 {
		n := copy(p, l.pending)
		l.pending = l.pending[n:]
		return n, nil
	}
	return l.r.Read(p)
}

func newLocator(br *bufio.Reader, magic []byte, offset int64) *Locator {
	pending := make([]byte, len(magic))
	copy(pending, magic)
	return &Locator{r: br, pending: pending, offset: offset}
}

// locateReverse tries the forward scan from 9/10 of the source downwards,
// one tenth at a time, until a match is found or offset 0 has been tried.
func locateReverse(rs io.ReadSeeker, magic []byte, table []int) (*Locator, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, notFound(err)
	}
	interval := size / segments

	br := bufio.NewReader(rs)
	var lastErr error
	for i := int64(segments - 1); i >= 0; i-- {
		if interval == 0 && i > 0 {
			continue
		}
		start := i * interval
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			lastErr = err
			continue
		}
		br.Reset(rs)

		pos, err := scan(br, magic, table)
		if err != nil {
			logrus.Debugf("Magic header not found after offset %d, moving back one segment", start)
			lastErr = err
			continue
		}
		return newLocator(br, magic, start+pos), nil
	}
	return nil, notFound(lastErr)
}

// scan consumes r until magic has been matched and returns the offset at
// which the match began, relative to the first byte read.
func scan(r io.ByteReader, magic []byte, table []int) (int64, error) {
	var consumed int64
	matched := 0
	for {
		b, err := r.ReadByte()
		if err != nil {
			return -1, err
		}
		consumed++

		for matched > 0 && b != magic[matched] {
			matched = table[matched-1]
		}
		if b == magic[matched] {
			matched++
		}
		if matched == len(magic) {
			return consumed - int64(len(magic)), nil
		}
	}
}

// failureTable returns, for every prefix magic[:i+1], the length of the
// longest proper prefix of magic that is also a suffix of it.
func failureTable(magic []byte) []int {
	table := make([]int, len(magic))
	k := 0
	for i := 1; i < len(magic); i++ {
		for k > 0 && magic[i] != magic[k] {
			k = table[k-1]
		}
		if magic[i] == magic[k] {
			k++
		}
		table[i] = k
	}
	return table
}

func notFound(cause error) error {
	if cause == nil || errors.Is(cause, io.EOF) {
		return models.NewError(models.ErrHeaderNotFound, "magic header not found in stream")
	}
	return &models.BundleError{Type: models.ErrHeaderNotFound, Err: fmt.Errorf("magic header not found: %w", cause)}
}
