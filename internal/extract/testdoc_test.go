package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mzgrab/mzgrab/internal/binenc"
	"github.com/mzgrab/mzgrab/internal/mzml"
)

// specDef describes one spectrum of a generated test document
type specDef struct {
	level    int
	rt       float64
	rtUnit   string // "second" or "minute"
	bpi      string // base peak intensity attr value, "" to omit
	tic      string // total ion current attr value, "" to omit
	premz    string // selected ion m/z, "" to omit
	ce       string // collision energy, "" to omit
	mz       []float64
	intens   []float64
	rawMzB64 string // overrides mz when non-empty, for corrupt-blob tests
}

// encodingDef describes the declared encoding of a generated document
type encodingDef struct {
	comp    binenc.Compression
	mzBits  int // 0 omits the cvParam
	intBits int // 0 omits the cvParam
}

var enc64 = encodingDef{comp: binenc.CompressionNone, mzBits: 64, intBits: 64}

func rtUnitAttrs(unit string) string {
	if unit == "minute" {
		return `unitAccession="UO:0000031" unitName="minute"`
	}
	return `unitAccession="UO:0000010" unitName="second"`
}

func binaryArrayXML(t *testing.T, e encodingDef, bits int, kindAccession, kindName string, vals []float64, raw string) string {
	t.Helper()
	b64 := raw
	if b64 == "" {
		var err error
		b64, err = binenc.Encode(vals, bits/8, e.comp)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	compParam := `<cvParam accession="MS:1000576" name="no compression"/>`
	if e.comp == binenc.CompressionZlib {
		compParam = `<cvParam accession="MS:1000574" name="zlib compression"/>`
	}
	bitParam := ""
	switch bits {
	case 64:
		bitParam = `<cvParam accession="MS:1000523" name="64-bit float"/>`
	case 32:
		bitParam = `<cvParam accession="MS:1000521" name="32-bit float"/>`
	}
	return fmt.Sprintf(`<binaryDataArray>
      %s
      %s
      <cvParam accession="%s" name="%s"/>
      <binary>%s</binary>
     </binaryDataArray>`, bitParam, compParam, kindAccession, kindName, b64)
}

// buildDoc generates an mzML document with the given spectra and parses it
func buildDoc(t *testing.T, e encodingDef, specs []specDef) *mzml.MzML {
	t.Helper()

	mzBits := e.mzBits
	if mzBits == 0 {
		mzBits = e.intBits
	}
	intBits := e.intBits
	if intBits == 0 {
		intBits = e.mzBits
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
 <run id="testrun">
  <spectrumList count="` + fmt.Sprint(len(specs)) + `">`)
	for i, s := range specs {
		fmt.Fprintf(&sb, `
   <spectrum index="%d" id="scan=%d" defaultArrayLength="%d">
    <cvParam accession="MS:1000511" name="ms level" value="%d"/>`,
			i, i+1, len(s.mz), s.level)
		if s.bpi != "" {
			fmt.Fprintf(&sb, `
    <cvParam accession="MS:1000505" name="base peak intensity" value="%s"/>`, s.bpi)
		}
		if s.tic != "" {
			fmt.Fprintf(&sb, `
    <cvParam accession="MS:1000285" name="total ion current" value="%s"/>`, s.tic)
		}
		fmt.Fprintf(&sb, `
    <scanList count="1">
     <scan>
      <cvParam accession="MS:1000016" name="scan start time" value="%g" %s/>
     </scan>
    </scanList>`, s.rt, rtUnitAttrs(s.rtUnit))
		if s.premz != "" || s.ce != "" {
			sb.WriteString(`
    <precursorList count="1">
     <precursor>`)
			if s.premz != "" {
				fmt.Fprintf(&sb, `
      <selectedIonList count="1">
       <selectedIon>
        <cvParam accession="MS:1000744" name="selected ion m/z" value="%s"/>
       </selectedIon>
      </selectedIonList>`, s.premz)
			}
			if s.ce != "" {
				fmt.Fprintf(&sb, `
      <activation>
       <cvParam accession="MS:1000045" name="collision energy" value="%s"/>
      </activation>`, s.ce)
			}
			sb.WriteString(`
     </precursor>
    </precursorList>`)
		}
		sb.WriteString(`
    <binaryDataArrayList count="2">
     ` + binaryArrayXML(t, e, mzBits, "MS:1000514", "m/z array", s.mz, s.rawMzB64) + `
     ` + binaryArrayXML(t, e, intBits, "MS:1000515", "intensity array", s.intens, "") + `
    </binaryDataArrayList>
   </spectrum>`)
	}
	sb.WriteString(`
  </spectrumList>
 </run>
</mzML>`)

	doc, err := mzml.Read(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return &doc
}
