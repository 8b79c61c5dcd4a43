package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mzgrab/mzgrab/internal/binenc"
	"github.com/mzgrab/mzgrab/internal/mzml"
)

var (
	// ErrMissingMetadata means the document contains no spectrum or
	// chromatogram node from which encoding metadata can be derived
	ErrMissingMetadata = errors.New("extract: unable to find a spectrum or chromatogram node from which to extract metadata")
	// ErrUnsupportedCompression means the compression cvParam carries a
	// label outside the recognized set
	ErrUnsupportedCompression = errors.New("extract: unsupported compression type")
	// ErrUnresolvedPrecision means neither the m/z nor the intensity
	// precision cvParam could be resolved to an element width
	ErrUnresolvedPrecision = errors.New("extract: unable to resolve binary element precision")
)

// MS-Numpress compression schemes; recognized so that they fail with a
// clear error instead of producing garbage values
var numpressAccessions = map[string]bool{
	`MS:1002312`: true, `MS:1002313`: true, `MS:1002314`: true,
	`MS:1002746`: true, `MS:1002747`: true, `MS:1002748`: true,
}

// compressionByName maps the cvParam name of the compression term to a
// decoding mode. Writers label zlib-deflated data either "zlib" or
// "zlib compression"; both decode identically.
var compressionByName = map[string]binenc.Compression{
	"zlib":             binenc.CompressionZlib,
	"zlib compression": binenc.CompressionZlib,
	"no compression":   binenc.CompressionNone,
	"none":             binenc.CompressionNone,
}

// parseBitWidth extracts the element byte width from a cv name of the
// form "<bits>-bit float"
func parseBitWidth(name string) (int, bool) {
	lead, _, ok := strings.Cut(name, "-")
	if !ok {
		return 0, false
	}
	bits, err := strconv.Atoi(lead)
	if err != nil || bits%8 != 0 || bits == 0 {
		return 0, false
	}
	return bits / 8, true
}

// EncodingFrom derives the document-wide binary encoding metadata from
// the first spectrum or chromatogram node. The result applies uniformly
// to every spectrum; documents mixing precisions or compression modes
// per spectrum are not detected.
func EncodingFrom(doc *mzml.MzML) (binenc.Encoding, error) {
	var enc binenc.Encoding

	params, ok := doc.EncodingCVParams()
	if !ok {
		return enc, ErrMissingMetadata
	}

	for _, cvParam := range params {
		if numpressAccessions[cvParam.Accession] {
			return enc, fmt.Errorf("%w: MS-Numpress (CV term %s)",
				ErrUnsupportedCompression, cvParam.Accession)
		}
		if cvParam.Accession == mzml.CVZlibCompression ||
			cvParam.Accession == mzml.CVNoCompression {
			comp, known := compressionByName[cvParam.Name]
			if !known {
				return enc, fmt.Errorf("%w: %q", ErrUnsupportedCompression, cvParam.Name)
			}
			enc.Compression = comp
		}
	}

	mzWidth, mzOK := 0, false
	intWidth, intOK := 0, false
	for _, cvParam := range params {
		switch cvParam.Accession {
		case mzml.CV64BitFloat:
			mzWidth, mzOK = parseBitWidth(cvParam.Name)
		case mzml.CV32BitFloat:
			intWidth, intOK = parseBitWidth(cvParam.Name)
		}
	}
	// An absent or unparsable width falls back to the other field's
	// width; with neither resolvable the decode result would be
	// undefined, so fail fast instead.
	if !mzOK && !intOK {
		return enc, ErrUnresolvedPrecision
	}
	if !mzOK {
		mzWidth = intWidth
	}
	if !intOK {
		intWidth = mzWidth
	}
	enc.MzWidth = mzWidth
	enc.IntWidth = intWidth
	return enc, nil
}
