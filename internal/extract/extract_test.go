package extract

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func f64Column(t *testing.T, res Result, col int) []float64 {
	t.Helper()
	arr, ok := res.Table.Column(col).(*array.Float64)
	require.True(t, ok, "column %d is not Float64", col)
	return arr.Values()
}

func TestMS1Broadcast(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 1.0, rtUnit: "minute", mz: []float64{100, 200, 300}, intens: []float64{1, 2, 3}},
		{level: 1, rt: 2.0, rtUnit: "minute", mz: []float64{150.5}, intens: []float64{9}},
	})
	enc, err := EncodingFrom(doc)
	require.NoError(t, err)

	res, err := MS1(doc, enc)
	require.NoError(t, err)
	defer res.Table.Release()

	require.EqualValues(t, 4, res.Table.NumRows())
	require.Empty(t, res.Skipped)
	if diff := cmp.Diff([]float64{1.0, 1.0, 1.0, 2.0}, f64Column(t, res, 0)); diff != "" {
		t.Errorf("rt column mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{100, 200, 300, 150.5}, f64Column(t, res, 1)); diff != "" {
		t.Errorf("mz column mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 9}, f64Column(t, res, 2)); diff != "" {
		t.Errorf("int column mismatch (-want +got):\n%s", diff)
	}
}

func TestMS1SecondsConvertedToMinutes(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 120, rtUnit: "second", mz: []float64{100}, intens: []float64{1}},
	})
	enc, err := EncodingFrom(doc)
	require.NoError(t, err)

	res, err := MS1(doc, enc)
	require.NoError(t, err)
	defer res.Table.Release()

	require.Equal(t, []float64{2.0}, f64Column(t, res, 0))
}

func TestMS1MixedUnitsResolvedPerSpectrum(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 90, rtUnit: "second", mz: []float64{100}, intens: []float64{1}},
		{level: 1, rt: 1.5, rtUnit: "minute", mz: []float64{100}, intens: []float64{1}},
	})
	enc, err := EncodingFrom(doc)
	require.NoError(t, err)

	res, err := MS1(doc, enc)
	require.NoError(t, err)
	defer res.Table.Release()

	require.Equal(t, []float64{1.5, 1.5}, f64Column(t, res, 0))
}

func TestMS1EmptySpectrumContributesNoRows(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 1, rtUnit: "minute", mz: []float64{}, intens: []float64{}},
		{level: 1, rt: 2, rtUnit: "minute", mz: []float64{500}, intens: []float64{50}},
	})
	enc, err := EncodingFrom(doc)
	require.NoError(t, err)

	res, err := MS1(doc, enc)
	require.NoError(t, err)
	defer res.Table.Release()

	require.EqualValues(t, 1, res.Table.NumRows())
	require.Equal(t, []float64{2}, f64Column(t, res, 0))
}

func TestMS2Table(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 1, rtUnit: "minute", mz: []float64{100}, intens: []float64{1}},
		{level: 2, rt: 1.1, rtUnit: "minute", premz: "100.5", ce: "35",
			mz: []float64{50, 60}, intens: []float64{5, 6}},
		{level: 2, rt: 1.2, rtUnit: "minute", premz: "200.25",
			mz: []float64{70}, intens: []float64{7}},
	})
	enc, err := EncodingFrom(doc)
	require.NoError(t, err)

	res, err := MS2(doc, enc)
	require.NoError(t, err)
	defer res.Table.Release()

	require.EqualValues(t, 3, res.Table.NumRows())
	require.Equal(t, []float64{1.1, 1.1, 1.2}, f64Column(t, res, 0))
	require.Equal(t, []float64{100.5, 100.5, 200.25}, f64Column(t, res, 1))
	require.Equal(t, []float64{50, 60, 70}, f64Column(t, res, 2))
	require.Equal(t, []float64{5, 6, 7}, f64Column(t, res, 3))

	volt, ok := res.Table.Column(4).(*array.Int32)
	require.True(t, ok)
	require.False(t, volt.IsNull(0))
	require.Equal(t, int32(35), volt.Value(0))
	require.Equal(t, int32(35), volt.Value(1))
	// the second MS2 spectrum has no collision energy; its rows are
	// null independently of the first spectrum
	require.True(t, volt.IsNull(2))
}

func TestMS2NoMatchingSpectra(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 1, rtUnit: "minute", mz: []float64{100}, intens: []float64{1}},
	})
	enc, err := EncodingFrom(doc)
	require.NoError(t, err)

	res, err := MS2(doc, enc)
	require.NoError(t, err)
	defer res.Table.Release()

	require.EqualValues(t, 0, res.Table.NumRows())
	require.True(t, res.Table.Schema().Equal(Schema(KindMS2)))
	require.EqualValues(t, 5, res.Table.NumCols())
}

func TestBPCAndTIC(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 1, rtUnit: "minute", bpi: "30", tic: "60", mz: []float64{100}, intens: []float64{1}},
		{level: 1, rt: 2, rtUnit: "minute", mz: []float64{100}, intens: []float64{1}},
		{level: 1, rt: 3, rtUnit: "minute", bpi: "40", tic: "80", mz: []float64{100}, intens: []float64{1}},
		{level: 2, rt: 4, rtUnit: "minute", bpi: "99", tic: "99", mz: []float64{50}, intens: []float64{5}},
	})

	bpc, err := BPC(doc)
	require.NoError(t, err)
	defer bpc.Table.Release()
	// spectrum 2 carries no base peak intensity and the level-2
	// spectrum is not eligible
	require.Equal(t, []float64{1, 3}, f64Column(t, bpc, 0))
	require.Equal(t, []float64{30, 40}, f64Column(t, bpc, 1))

	tic, err := TIC(doc)
	require.NoError(t, err)
	defer tic.Table.Release()
	require.Equal(t, []float64{1, 3}, f64Column(t, tic, 0))
	require.Equal(t, []float64{60, 80}, f64Column(t, tic, 1))
}

func TestComputedChromatograms(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 1, rtUnit: "minute", mz: []float64{100, 200}, intens: []float64{10, 30}},
		{level: 1, rt: 2, rtUnit: "minute", mz: []float64{}, intens: []float64{}},
		{level: 1, rt: 3, rtUnit: "minute", mz: []float64{150}, intens: []float64{7}},
	})
	enc, err := EncodingFrom(doc)
	require.NoError(t, err)

	bpc, err := ComputedBPC(doc, enc)
	require.NoError(t, err)
	defer bpc.Table.Release()
	require.Equal(t, []float64{1, 3}, f64Column(t, bpc, 0))
	require.Equal(t, []float64{30, 7}, f64Column(t, bpc, 1))

	tic, err := ComputedTIC(doc, enc)
	require.NoError(t, err)
	defer tic.Table.Release()
	require.Equal(t, []float64{40, 7}, f64Column(t, tic, 1))
}

func TestDecodeFailureSkipsSpectrum(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 1, rtUnit: "minute", mz: []float64{100}, intens: []float64{1}},
		{level: 1, rt: 2, rtUnit: "minute", rawMzB64: "%%%corrupt%%%", intens: []float64{1}},
		{level: 1, rt: 3, rtUnit: "minute", mz: []float64{300}, intens: []float64{3}},
	})
	enc, err := EncodingFrom(doc)
	require.NoError(t, err)

	res, err := MS1(doc, enc)
	require.NoError(t, err)
	defer res.Table.Release()

	require.Equal(t, []string{"scan=2"}, res.Skipped)
	require.Equal(t, []float64{1, 3}, f64Column(t, res, 0))
	require.Equal(t, []float64{100, 300}, f64Column(t, res, 1))
}

func TestExtract(t *testing.T) {
	doc := buildDoc(t, enc64, []specDef{
		{level: 1, rt: 1, rtUnit: "minute", bpi: "30", tic: "60", mz: []float64{100, 200}, intens: []float64{1, 2}},
		{level: 2, rt: 1.1, rtUnit: "minute", premz: "100.5", ce: "35", mz: []float64{50}, intens: []float64{5}},
	})

	out, err := Extract(doc, AllKinds())
	require.NoError(t, err)
	for _, res := range out {
		defer res.Table.Release()
	}

	require.Len(t, out, 4)
	require.EqualValues(t, 2, out[KindMS1].Table.NumRows())
	require.EqualValues(t, 1, out[KindMS2].Table.NumRows())
	require.EqualValues(t, 1, out[KindBPC].Table.NumRows())
	require.EqualValues(t, 1, out[KindTIC].Table.NumRows())
}

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	got, err := ParseKind(" tic ")
	require.NoError(t, err)
	require.Equal(t, KindTIC, got)
	_, err = ParseKind("MS3")
	require.Error(t, err)
}
