// Package jar reads JAR and ZIP archives as a stream, one local file entry
// after another, without needing the central directory.
package jar

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

const (
	localFileHeaderSignature = 0x04034b50
	dataDescriptorSignature  = 0x08074b50

	localFileHeaderLen = 26 // after the signature
	zip64ExtraID       = 0x0001
	flagDataDescriptor = 0x8
	uint32Max          = 0xFFFFFFFF

	MethodStore   = 0
	MethodDeflate = 8
)

// ManifestPath is where a JAR keeps its manifest
const ManifestPath = "META-INF/MANIFEST.MF"

// Entry describes one file in the archive
type Entry struct {
	Name             string
	Method           uint16
	Flags            uint16
	CompressedSize   uint64 // zero when sizes follow the data
	UncompressedSize uint64
}

// IsDir reports whether the entry is a directory
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

func (e *Entry) hasDataDescriptor() bool {
	return e.Flags&flagDataDescriptor != 0
}

// Reader iterates over the entries of a JAR stream. Like tar.Reader, Next
// advances to the following entry and Read returns its content.
type Reader struct {
	br       *bufio.Reader
	manifest *Manifest

	pending *Entry // first non-manifest entry, returned by the first Next
	entry   *Entry
	zip64   bool
	content io.Reader
	limited *io.LimitedReader
	inflate io.ReadCloser
	done    bool
}

// NewReader starts reading a JAR stream. The manifest is picked up when it
// is the first entry, optionally preceded by the META-INF/ directory;
// anywhere else it is treated as an ordinary entry.
func NewReader(r io.Reader) (*Reader, error) {
	jr := &Reader{br: bufio.NewReader(r)}

	e, err := jr.next()
	if err == io.EOF {
		return jr, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(e.Name, "META-INF/") {
		e, err = jr.next()
		if err == io.EOF {
			return jr, nil
		}
		if err != nil {
			return nil, err
		}
	}

	if !strings.EqualFold(e.Name, ManifestPath) {
		jr.pending = e
		return jr, nil
	}

	data, err := io.ReadAll(jr)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	jr.manifest, err = ParseManifest(data)
	if err != nil {
		return nil, err
	}
	return jr, nil
}

// Manifest returns the archive manifest, or nil if there is none
func (jr *Reader) Manifest() *Manifest {
	return jr.manifest
}

// Next advances to the next entry, skipping whatever is left of the
// current one. It returns io.EOF when there are no more entries.
func (jr *Reader) Next() (*Entry, error) {
	if jr.pending != nil {
		e := jr.pending
		jr.pending = nil
		return e, nil
	}
	return jr.next()
}

// Read reads from the current entry. It returns io.EOF at the end of the
// entry's content.
func (jr *Reader) Read(p []byte) (int, error) {
	if jr.content == nil {
		return 0, io.EOF
	}
	return jr.content.Read(p)
}

// Close releases the decompressor of the current entry. It does not close
// the underlying stream.
func (jr *Reader) Close() error {
	if jr.inflate != nil {
		err := jr.inflate.Close()
		jr.inflate = nil
		return err
	}
	return nil
}

func (jr *Reader) next() (*Entry, error) {
	if jr.done {
		return nil, io.EOF
	}
	if err := jr.finishEntry(); err != nil {
		return nil, err
	}

	sig, err := jr.readUint32()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			jr.done = true
			return nil, io.EOF
		}
		return nil, err
	}

	// Anything but a local file header ends the entries: normally the
	// central directory, otherwise data that is not an archive at all.
	if sig != localFileHeaderSignature {
		jr.done = true
		return nil, io.EOF
	}

	var hdr [localFileHeaderLen]byte
	if _, err := io.ReadFull(jr.br, hdr[:]); err != nil {
		return nil, fmt.Errorf("failed to read zip local header: %w", err)
	}
	e := &Entry{
		Flags:            binary.LittleEndian.Uint16(hdr[2:4]),
		Method:           binary.LittleEndian.Uint16(hdr[4:6]),
		CompressedSize:   uint64(binary.LittleEndian.Uint32(hdr[14:18])),
		UncompressedSize: uint64(binary.LittleEndian.Uint32(hdr[18:22])),
	}
	nameLen := int(binary.LittleEndian.Uint16(hdr[22:24]))
	extraLen := int(binary.LittleEndian.Uint16(hdr[24:26]))

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(jr.br, name); err != nil {
		return nil, fmt.Errorf("failed to read entry name: %w", err)
	}
	e.Name = string(name)

	extra := make([]byte, extraLen)
	if _, err := io.ReadFull(jr.br, extra); err != nil {
		return nil, fmt.Errorf("failed to read extra field of %s: %w", e.Name, err)
	}
	jr.zip64 = applyZip64Extra(e, extra)

	if err := jr.openContent(e); err != nil {
		return nil, err
	}
	jr.entry = e
	return e, nil
}

// openContent prepares jr.content for reading e's data
func (jr *Reader) openContent(e *Entry) error {
	switch e.Method {
	case MethodStore:
		if e.hasDataDescriptor() && !e.IsDir() {
			return fmt.Errorf("stored entry %s has no size in its local header", e.Name)
		}
		jr.limited = &io.LimitedReader{R: jr.br, N: int64(e.CompressedSize)}
		jr.content = jr.limited
	case MethodDeflate:
		if e.hasDataDescriptor() {
			// bufio.Reader is an io.ByteReader, so flate stops exactly at
			// the end of the deflate stream and the descriptor stays unread.
			jr.inflate = flate.NewReader(jr.br)
		} else {
			jr.limited = &io.LimitedReader{R: jr.br, N: int64(e.CompressedSize)}
			jr.inflate = flate.NewReader(jr.limited)
		}
		jr.content = jr.inflate
	default:
		return fmt.Errorf("entry %s uses unsupported compression method %d", e.Name, e.Method)
	}
	return nil
}

// finishEntry discards the rest of the current entry and its data descriptor
func (jr *Reader) finishEntry() error {
	if jr.entry == nil {
		return nil
	}
	e := jr.entry
	jr.entry = nil

	if jr.content != nil {
		if _, err := io.Copy(io.Discard, jr.content); err != nil {
			return fmt.Errorf("failed to skip entry %s: %w", e.Name, err)
		}
	}
	if jr.limited != nil {
		if _, err := io.Copy(io.Discard, jr.limited); err != nil {
			return fmt.Errorf("failed to skip entry %s: %w", e.Name, err)
		}
	}
	if err := jr.Close(); err != nil {
		return err
	}
	jr.content = nil
	jr.limited = nil

	if e.hasDataDescriptor() {
		return jr.skipDataDescriptor()
	}
	return nil
}

// skipDataDescriptor consumes the crc and sizes that follow deflated data.
// The leading signature is optional.
func (jr *Reader) skipDataDescriptor() error {
	first, err := jr.readUint32()
	if err != nil {
		return fmt.Errorf("failed to read data descriptor: %w", err)
	}
	rest := 8 // compressed + uncompressed size
	if jr.zip64 {
		rest = 16
	}
	if first == dataDescriptorSignature {
		rest += 4 // crc follows the signature
	}
	if _, err := jr.br.Discard(rest); err != nil {
		return fmt.Errorf("failed to read data descriptor: %w", err)
	}
	return nil
}

func (jr *Reader) readUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(jr.br, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// applyZip64Extra replaces 32-bit placeholder sizes with their ZIP64
// values and reports whether a ZIP64 field was present.
func applyZip64Extra(e *Entry, extra []byte) bool {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		extra = extra[4:]
		if size > len(extra) {
			return false
		}
		field := extra[:size]
		extra = extra[size:]
		if id != zip64ExtraID {
			continue
		}
		if e.UncompressedSize == uint32Max && len(field) >= 8 {
			e.UncompressedSize = binary.LittleEndian.Uint64(field[:8])
			field = field[8:]
		}
		if e.CompressedSize == uint32Max && len(field) >= 8 {
			e.CompressedSize = binary.LittleEndian.Uint64(field[:8])
		}
		return true
	}
	return false
}
