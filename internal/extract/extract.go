package extract

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"gonum.org/v1/gonum/floats"

	"github.com/mzgrab/mzgrab/internal/binenc"
	"github.com/mzgrab/mzgrab/internal/mzml"
)

// Result is one extracted table. Skipped lists the scan ids of spectra
// that were left out because their binary data could not be decoded;
// the table contains every other matching spectrum. The caller owns the
// record and must Release it.
type Result struct {
	Table   arrow.Record
	Skipped []string
}

// MS1 extracts the flat peak table of all level-1 spectra. Each peak
// becomes one row (rt, mz, int), spectra in document order, peaks in
// array order.
func MS1(doc *mzml.MzML, enc binenc.Encoding) (Result, error) {
	recs, skipped, err := collectRecords(doc, enc, 1)
	if err != nil {
		return Result{}, err
	}

	rts := make([]float64, len(recs))
	mzArrs := make([][]float64, len(recs))
	intArrs := make([][]float64, len(recs))
	for i, rec := range recs {
		rts[i] = rec.rt
		mzArrs[i] = rec.mz
		intArrs[i] = rec.intensity
	}
	lens := lengths(mzArrs)

	b := array.NewRecordBuilder(memory.DefaultAllocator, Schema(KindMS1))
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues(broadcast(rts, lens), nil)
	b.Field(1).(*array.Float64Builder).AppendValues(concat(mzArrs), nil)
	b.Field(2).(*array.Float64Builder).AppendValues(concat(intArrs), nil)
	return Result{Table: b.NewRecord(), Skipped: skipped}, nil
}

// MS2 extracts the flat fragment table of all level-2 spectra. The
// retention time, precursor m/z and collision voltage of a spectrum are
// repeated per fragment peak: rows are (rt, premz, fragmz, int, voltage).
func MS2(doc *mzml.MzML, enc binenc.Encoding) (Result, error) {
	recs, skipped, err := collectRecords(doc, enc, 2)
	if err != nil {
		return Result{}, err
	}

	rts := make([]float64, len(recs))
	premzs := make([]float64, len(recs))
	mzArrs := make([][]float64, len(recs))
	intArrs := make([][]float64, len(recs))
	for i, rec := range recs {
		rts[i] = rec.rt
		premzs[i] = rec.precursorMz
		mzArrs[i] = rec.mz
		intArrs[i] = rec.intensity
	}
	lens := lengths(mzArrs)

	b := array.NewRecordBuilder(memory.DefaultAllocator, Schema(KindMS2))
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues(broadcast(rts, lens), nil)
	b.Field(1).(*array.Float64Builder).AppendValues(broadcast(premzs, lens), nil)
	b.Field(2).(*array.Float64Builder).AppendValues(concat(mzArrs), nil)
	b.Field(3).(*array.Float64Builder).AppendValues(concat(intArrs), nil)
	voltb := b.Field(4).(*array.Int32Builder)
	for i, rec := range recs {
		for j := 0; j < lens[i]; j++ {
			if rec.voltageValid {
				voltb.Append(rec.voltage)
			} else {
				voltb.AppendNull()
			}
		}
	}
	return Result{Table: b.NewRecord(), Skipped: skipped}, nil
}

// BPC extracts the base peak chromatogram: one (rt, int) row per
// level-1 spectrum that carries a base peak intensity cvParam.
func BPC(doc *mzml.MzML) (Result, error) {
	return scalarChromatogram(doc, (*mzml.MzML).BasePeakIntensity)
}

// TIC extracts the total ion chromatogram: one (rt, int) row per
// level-1 spectrum that carries a total ion current cvParam.
func TIC(doc *mzml.MzML) (Result, error) {
	return scalarChromatogram(doc, (*mzml.MzML).TotalIonCurrent)
}

// scalarChromatogram implements BPC and TIC, which differ only in the
// scalar read per spectrum
func scalarChromatogram(doc *mzml.MzML, field func(*mzml.MzML, int) (float64, error)) (Result, error) {
	idxs, err := selectSpectra(doc, 1)
	if err != nil {
		return Result{}, err
	}

	var rts, ints []float64
	for _, i := range idxs {
		v, err := field(doc, i)
		if err != nil {
			return Result{}, err
		}
		if math.IsNaN(v) {
			continue
		}
		st, err := doc.ScanStartTime(i)
		if err != nil {
			return Result{}, err
		}
		rts = append(rts, retentionTimeMinutes(st))
		ints = append(ints, v)
	}
	return chromatogramRecord(rts, ints), nil
}

// ComputedBPC derives the base peak chromatogram from the decoded
// intensity arrays instead of the scalar cvParams, for files whose
// writer did not record them. Spectra with zero peaks contribute no row.
func ComputedBPC(doc *mzml.MzML, enc binenc.Encoding) (Result, error) {
	return computedChromatogram(doc, enc, floats.Max)
}

// ComputedTIC derives the total ion chromatogram from the decoded
// intensity arrays, summing all peak intensities per spectrum.
func ComputedTIC(doc *mzml.MzML, enc binenc.Encoding) (Result, error) {
	return computedChromatogram(doc, enc, floats.Sum)
}

func computedChromatogram(doc *mzml.MzML, enc binenc.Encoding, reduce func([]float64) float64) (Result, error) {
	recs, skipped, err := collectRecords(doc, enc, 1)
	if err != nil {
		return Result{}, err
	}

	var rts, ints []float64
	for _, rec := range recs {
		if len(rec.intensity) == 0 {
			continue
		}
		rts = append(rts, rec.rt)
		ints = append(ints, reduce(rec.intensity))
	}
	res := chromatogramRecord(rts, ints)
	res.Skipped = skipped
	return res, nil
}

func chromatogramRecord(rts, ints []float64) Result {
	b := array.NewRecordBuilder(memory.DefaultAllocator, Schema(KindBPC))
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues(rts, nil)
	b.Field(1).(*array.Float64Builder).AppendValues(ints, nil)
	return Result{Table: b.NewRecord()}
}

// Extract produces the requested tables from one document. Encoding
// metadata is derived once and applied to every spectrum. The four
// outputs are also available as separate operations (MS1, MS2, BPC,
// TIC) so a host can interleave its own progress reporting.
func Extract(doc *mzml.MzML, kinds []Kind) (map[Kind]Result, error) {
	enc, err := EncodingFrom(doc)
	if err != nil {
		return nil, err
	}

	out := make(map[Kind]Result, len(kinds))
	for _, k := range kinds {
		var res Result
		switch k {
		case KindMS1:
			res, err = MS1(doc, enc)
		case KindMS2:
			res, err = MS2(doc, enc)
		case KindBPC:
			res, err = BPC(doc)
		case KindTIC:
			res, err = TIC(doc)
		}
		if err != nil {
			for _, r := range out {
				r.Table.Release()
			}
			return nil, err
		}
		out[k] = res
	}
	return out, nil
}
