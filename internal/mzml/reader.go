package mzml

import (
	"encoding/xml"
	"io"
	"math"
	"strconv"

	"golang.org/x/net/html/charset"

	"github.com/mzgrab/mzgrab/internal/binenc"
)

// Read reads an mzML document from an io.Reader
func Read(reader io.Reader) (MzML, error) {
	var mzML MzML

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	// We are only interested in mzML content, so skip over indexedmzML
	// and everything else
	for {
		t, tokenErr := d.Token()
		if tokenErr != nil {
			if tokenErr == io.EOF {
				break
			}
			return mzML, tokenErr
		}
		switch t := t.(type) {
		case xml.StartElement:
			if t.Name.Local == "mzML" {
				if err := d.DecodeElement(&mzML.content, &t); err != nil {
					return mzML, err
				}
			}
		}
	}

	err := mzML.traverseScan()
	return mzML, err
}

// NumSpecs returns the number of spectra
func (f *MzML) NumSpecs() int {
	return len(f.content.Run.SpectrumList.Spectrum)
}

// cvValue returns the first cvParam with the given accession, if any
func cvValue(params []CVParam, accession string) (CVParam, bool) {
	for _, cvParam := range params {
		if cvParam.Accession == accession {
			return cvParam, true
		}
	}
	return CVParam{}, false
}

// spectrumCvFloat reads a float-valued cvParam from the spectrum's own
// parameter list, NaN if the spectrum does not carry it
func (f *MzML) spectrumCvFloat(scanIndex int, accession string) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}
	cvParam, ok := cvValue(f.content.Run.SpectrumList.Spectrum[scanIndex].CvPar, accession)
	if !ok {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cvParam.Value, 64)
}

// MSLevel returns the MS level of a scan
func (f *MzML) MSLevel(scanIndex int) (int, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0, ErrInvalidScanIndex
	}
	cvParam, ok := cvValue(f.content.Run.SpectrumList.Spectrum[scanIndex].CvPar, CVMSLevel)
	if !ok {
		return 1, nil // If nothing else, guess it's MS1
	}
	msLevel, err := strconv.ParseInt(cvParam.Value, 10, 64)
	return int(msLevel), err
}

// ScanTime is a scan start time as recorded in the file, together with
// the unit it was recorded in
type ScanTime struct {
	Value         float64
	UnitAccession string
	UnitName      string
}

// ScanStartTime returns the scan start time of a spectrum in the unit
// the file declares, NaN value if the spectrum has none
func (f *MzML) ScanStartTime(scanIndex int) (ScanTime, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return ScanTime{}, ErrInvalidScanIndex
	}
	for _, scan := range f.content.Run.SpectrumList.Spectrum[scanIndex].ScanList.Scan {
		if cvParam, ok := cvValue(scan.CvPar, CVScanStartTime); ok {
			t, err := strconv.ParseFloat(cvParam.Value, 64)
			return ScanTime{
				Value:         t,
				UnitAccession: cvParam.UnitAccession,
				UnitName:      cvParam.UnitName,
			}, err
		}
	}
	return ScanTime{Value: math.NaN()}, nil
}

// BasePeakIntensity returns the base peak intensity of a spectrum,
// or NaN if not found
func (f *MzML) BasePeakIntensity(scanIndex int) (float64, error) {
	return f.spectrumCvFloat(scanIndex, CVBasePeakIntensity)
}

// TotalIonCurrent returns the total ion current, or NaN if not found
func (f *MzML) TotalIonCurrent(scanIndex int) (float64, error) {
	return f.spectrumCvFloat(scanIndex, CVTotalIonCurrent)
}

// SelectedIonMz returns the m/z of the first selected precursor ion of
// a spectrum, or NaN if the spectrum has no precursor
func (f *MzML) SelectedIonMz(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}
	for _, pl := range f.content.Run.SpectrumList.Spectrum[scanIndex].PrecursorList {
		for _, prec := range pl.Precursor {
			for _, ion := range prec.SelectedIonList.SelectedIon {
				if cvParam, ok := cvValue(ion.CvPar, CVSelectedIonMz); ok {
					return strconv.ParseFloat(cvParam.Value, 64)
				}
			}
		}
	}
	return math.NaN(), nil
}

// CollisionEnergy returns the collision energy of the first precursor
// activation of a spectrum, or NaN if the spectrum has none
func (f *MzML) CollisionEnergy(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}
	for _, pl := range f.content.Run.SpectrumList.Spectrum[scanIndex].PrecursorList {
		for _, prec := range pl.Precursor {
			if cvParam, ok := cvValue(prec.Activation.CvPar, CVCollisionEnergy); ok {
				return strconv.ParseFloat(cvParam.Value, 64)
			}
		}
	}
	return math.NaN(), nil
}

// BinaryData returns the base64 text of the m/z or intensity array of a
// spectrum. Arrays are selected by their kind cvParam (MS:1000514 /
// MS:1000515); when no array of the spectrum is kind-tagged, the
// positional mzML convention applies: first array is m/z, second is
// intensity. An empty string means the spectrum has no such array.
func (f *MzML) BinaryData(scanIndex int, kind binenc.ArrayKind) (string, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return "", ErrInvalidScanIndex
	}
	arrays := f.content.Run.SpectrumList.Spectrum[scanIndex].BinaryDataArrayList.BinaryDataArray

	accession := CVMzArray
	if kind == binenc.KindIntensity {
		accession = CVIntensityArray
	}
	tagged := false
	for i := range arrays {
		if _, ok := cvValue(arrays[i].CvPar, CVMzArray); ok {
			tagged = true
		}
		if _, ok := cvValue(arrays[i].CvPar, CVIntensityArray); ok {
			tagged = true
		}
		if _, ok := cvValue(arrays[i].CvPar, accession); ok {
			return arrays[i].Binary, nil
		}
	}
	if tagged {
		// arrays are kind-tagged, but none matches the requested kind
		return "", nil
	}
	pos := 0
	if kind == binenc.KindIntensity {
		pos = 1
	}
	if pos >= len(arrays) {
		return "", nil
	}
	return arrays[pos].Binary, nil
}

// EncodingCVParams returns the cvParams in scope of the first spectrum
// or chromatogram of the document, from which document-wide encoding
// metadata can be derived. The second return value is false when the
// document contains neither.
func (f *MzML) EncodingCVParams() ([]CVParam, bool) {
	if f.NumSpecs() > 0 {
		spec := &f.content.Run.SpectrumList.Spectrum[0]
		params := append([]CVParam{}, spec.CvPar...)
		for _, bda := range spec.BinaryDataArrayList.BinaryDataArray {
			params = append(params, bda.CvPar...)
		}
		return params, true
	}
	if len(f.content.Run.ChromatogramList.Chromatogram) > 0 {
		chrom := &f.content.Run.ChromatogramList.Chromatogram[0]
		params := append([]CVParam{}, chrom.CvPar...)
		for _, bda := range chrom.BinaryDataArrayList.BinaryDataArray {
			params = append(params, bda.CvPar...)
		}
		return params, true
	}
	return nil, false
}

// traverseScan traverses all scans and fills the arrays f.index2id and
// f.id2Index to make scans accessible by id
func (f *MzML) traverseScan() error {
	f.index2id = make([]string, f.NumSpecs())
	f.id2Index = make(map[string]int, f.NumSpecs())

	for i := range f.content.Run.SpectrumList.Spectrum {
		if err := f.addSpecToIndex(i); err != nil {
			return err
		}
	}
	return nil
}

func (f *MzML) addSpecToIndex(i int) error {
	if i != f.content.Run.SpectrumList.Spectrum[i].Index {
		return ErrInvalidScanIndex
	}
	f.index2id[i] = f.content.Run.SpectrumList.Spectrum[i].ID
	f.id2Index[f.content.Run.SpectrumList.Spectrum[i].ID] = i
	return nil
}

// ScanIndex converts a scan identifier (the string used in the mzML file)
// into an index that is used to access the scans
func (f *MzML) ScanIndex(scanID string) (int, error) {
	if index, ok := f.id2Index[scanID]; ok {
		return index, nil
	}
	return 0, ErrInvalidScanID
}

// ScanID converts a scan index (used to access the scan data) into a scan id
// (used in the mzML file)
func (f *MzML) ScanID(scanIndex int) (string, error) {
	if scanIndex >= 0 && scanIndex < f.NumSpecs() {
		return f.index2id[scanIndex], nil
	}
	return "", ErrInvalidScanIndex
}
