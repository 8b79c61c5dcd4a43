package extract

import (
	"math"

	"github.com/mzgrab/mzgrab/internal/binenc"
	"github.com/mzgrab/mzgrab/internal/mzml"
)

// spectrumRecord holds the fields of one spectrum between extraction
// and flattening. Records are transient; they are consumed by the table
// assembly and not retained.
type spectrumRecord struct {
	rt           float64 // retention time in minutes
	mz           []float64
	intensity    []float64
	precursorMz  float64 // NaN for spectra without a precursor
	voltage      int32
	voltageValid bool
}

// selectSpectra returns the indices of all spectra at the given MS level,
// in document order
func selectSpectra(doc *mzml.MzML, level int) ([]int, error) {
	var idxs []int
	for i := 0; i < doc.NumSpecs(); i++ {
		msLevel, err := doc.MSLevel(i)
		if err != nil {
			return nil, err
		}
		if msLevel == level {
			idxs = append(idxs, i)
		}
	}
	return idxs, nil
}

// retentionTimeMinutes converts a scan start time to minutes using the
// unit of that scan. Anything not declared as minutes is taken to be
// seconds, which is what every known writer emits.
func retentionTimeMinutes(st mzml.ScanTime) float64 {
	if st.UnitAccession == mzml.CVUnitMinute || st.UnitName == "minute" {
		return st.Value
	}
	return st.Value / 60
}

// decodeArrays decodes the m/z and intensity arrays of one spectrum
func decodeArrays(doc *mzml.MzML, enc binenc.Encoding, scanIndex int) ([]float64, []float64, error) {
	mzB64, err := doc.BinaryData(scanIndex, binenc.KindMz)
	if err != nil {
		return nil, nil, err
	}
	mz, err := binenc.Decode(mzB64, enc.Width(binenc.KindMz), enc.Compression)
	if err != nil {
		return nil, nil, err
	}
	intB64, err := doc.BinaryData(scanIndex, binenc.KindIntensity)
	if err != nil {
		return nil, nil, err
	}
	intensity, err := binenc.Decode(intB64, enc.Width(binenc.KindIntensity), enc.Compression)
	if err != nil {
		return nil, nil, err
	}
	return mz, intensity, nil
}

// collectRecords builds a spectrumRecord per spectrum of the given MS
// level. Spectra whose binary data cannot be decoded, or whose m/z and
// intensity arrays disagree in length, are skipped; their scan ids are
// returned separately so the caller can report them.
func collectRecords(doc *mzml.MzML, enc binenc.Encoding, level int) ([]spectrumRecord, []string, error) {
	idxs, err := selectSpectra(doc, level)
	if err != nil {
		return nil, nil, err
	}

	recs := make([]spectrumRecord, 0, len(idxs))
	var skipped []string
	for _, i := range idxs {
		st, err := doc.ScanStartTime(i)
		if err != nil {
			return nil, nil, err
		}
		mz, intensity, err := decodeArrays(doc, enc, i)
		if err != nil || len(mz) != len(intensity) {
			id, idErr := doc.ScanID(i)
			if idErr != nil {
				return nil, nil, idErr
			}
			skipped = append(skipped, id)
			continue
		}
		rec := spectrumRecord{
			rt:          retentionTimeMinutes(st),
			mz:          mz,
			intensity:   intensity,
			precursorMz: math.NaN(),
		}
		if level == 2 {
			premz, err := doc.SelectedIonMz(i)
			if err != nil {
				return nil, nil, err
			}
			rec.precursorMz = premz
			ce, err := doc.CollisionEnergy(i)
			if err != nil {
				return nil, nil, err
			}
			if !math.IsNaN(ce) {
				rec.voltage = int32(math.Round(ce))
				rec.voltageValid = true
			}
		}
		recs = append(recs, rec)
	}
	return recs, skipped, nil
}
