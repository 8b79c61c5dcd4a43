// Package binenc decodes and encodes the base64-wrapped binary arrays
// used by mzML binaryDataArray elements. Values are IEEE-754 floats,
// little-endian, 4 or 8 bytes per element, optionally zlib compressed.
package binenc

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Compression is the document-wide binary data compression mode.
type Compression int

const (
	// CompressionNone means array bytes are stored uncompressed
	CompressionNone Compression = iota
	// CompressionZlib means array bytes are deflated with a zlib header.
	// mzML writers tag this either "zlib" or "zlib compression"; both
	// decode the same way.
	CompressionZlib
)

func (c Compression) String() string {
	if c == CompressionZlib {
		return "zlib"
	}
	return "none"
}

// ArrayKind selects which element width of an Encoding applies.
type ArrayKind int

const (
	// KindMz is the m/z array of a spectrum
	KindMz ArrayKind = iota
	// KindIntensity is the intensity array of a spectrum
	KindIntensity
)

func (k ArrayKind) String() string {
	if k == KindIntensity {
		return "intensity"
	}
	return "mz"
}

// Encoding holds the binary encoding metadata of one mzML document.
// It is computed once per document and applied to every spectrum.
// Byte order is always little-endian; mzML does not define another.
type Encoding struct {
	Compression Compression
	MzWidth     int // bytes per m/z element, 4 or 8
	IntWidth    int // bytes per intensity element, 4 or 8
}

// Width returns the element byte width for the given array kind.
func (e Encoding) Width(kind ArrayKind) int {
	if kind == KindIntensity {
		return e.IntWidth
	}
	return e.MzWidth
}

var (
	// ErrDecode means a binary blob could not be decoded
	// (malformed base64, corrupt zlib stream, or a byte length that is
	// not a multiple of the element width)
	ErrDecode = errors.New("binenc: malformed binary data")
	// ErrElementWidth means an element width other than 4 or 8 was requested
	ErrElementWidth = errors.New("binenc: element width must be 4 or 8")
)

// Decode converts one base64 blob into float64 values. An empty blob
// yields an empty slice. width is the element byte width (4 or 8);
// 4-byte elements are read as single precision and widened.
func Decode(b64 string, width int, comp Compression) ([]float64, error) {
	if width != 4 && width != 8 {
		return nil, fmt.Errorf("%w (got %d)", ErrElementWidth, width)
	}
	if b64 == "" {
		return []float64{}, nil
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}
	if comp == CompressionZlib {
		z, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrDecode, err)
		}
		defer z.Close()
		d, err := io.ReadAll(z)
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrDecode, err)
		}
		data = d
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of element width %d",
			ErrDecode, len(data), width)
	}
	cnt := len(data) / width
	vals := make([]float64, cnt)
	if width == 8 {
		for i := 0; i < cnt; i++ {
			bits := binary.LittleEndian.Uint64(data[i*8:])
			vals[i] = math.Float64frombits(bits)
		}
	} else {
		for i := 0; i < cnt; i++ {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			vals[i] = float64(math.Float32frombits(bits))
		}
	}
	return vals, nil
}

// Encode is the inverse of Decode. It exists so that round trips can be
// tested without external files, and to generate test documents.
func Encode(vals []float64, width int, comp Compression) (string, error) {
	if width != 4 && width != 8 {
		return "", fmt.Errorf("%w (got %d)", ErrElementWidth, width)
	}
	raw := make([]byte, len(vals)*width)
	if width == 8 {
		for i, v := range vals {
			binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
		}
	} else {
		for i, v := range vals {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(float32(v)))
		}
	}
	data := raw
	if comp == CompressionZlib {
		var b bytes.Buffer
		z := zlib.NewWriter(&b)
		if _, err := z.Write(raw); err != nil {
			return "", err
		}
		// the writer must be closed before the buffer is read,
		// otherwise the stream is incomplete
		if err := z.Close(); err != nil {
			return "", err
		}
		data = b.Bytes()
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
