// Package extract turns a parsed mzML document into flat Apache Arrow
// tables: MS1 and MS2 peak lists, and base-peak / total-ion
// chromatograms.
package extract

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind identifies one of the extractable outputs
type Kind int

const (
	// KindMS1 is the flat peak table of all level-1 spectra
	KindMS1 Kind = iota
	// KindMS2 is the flat fragment table of all level-2 spectra
	KindMS2
	// KindBPC is the base peak chromatogram
	KindBPC
	// KindTIC is the total ion chromatogram
	KindTIC
)

// AllKinds returns every extractable output kind, in output order
func AllKinds() []Kind {
	return []Kind{KindMS1, KindMS2, KindBPC, KindTIC}
}

func (k Kind) String() string {
	switch k {
	case KindMS1:
		return "MS1"
	case KindMS2:
		return "MS2"
	case KindBPC:
		return "BPC"
	case KindTIC:
		return "TIC"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts an output name (case-insensitive) into a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MS1":
		return KindMS1, nil
	case "MS2":
		return KindMS2, nil
	case "BPC":
		return KindBPC, nil
	case "TIC":
		return KindTIC, nil
	}
	return 0, fmt.Errorf("extract: unknown output kind %q", s)
}

// Schema returns the Arrow schema of the table produced for a kind.
// Retention times are in minutes. The MS2 voltage column is nullable;
// a spectrum without a collision energy yields a null voltage.
func Schema(k Kind) *arrow.Schema {
	switch k {
	case KindMS1:
		return arrow.NewSchema(
			[]arrow.Field{
				{Name: "rt", Type: arrow.PrimitiveTypes.Float64},
				{Name: "mz", Type: arrow.PrimitiveTypes.Float64},
				{Name: "int", Type: arrow.PrimitiveTypes.Float64},
			},
			nil,
		)
	case KindMS2:
		return arrow.NewSchema(
			[]arrow.Field{
				{Name: "rt", Type: arrow.PrimitiveTypes.Float64},
				{Name: "premz", Type: arrow.PrimitiveTypes.Float64},
				{Name: "fragmz", Type: arrow.PrimitiveTypes.Float64},
				{Name: "int", Type: arrow.PrimitiveTypes.Float64},
				{Name: "voltage", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
			},
			nil,
		)
	}
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "rt", Type: arrow.PrimitiveTypes.Float64},
			{Name: "int", Type: arrow.PrimitiveTypes.Float64},
		},
		nil,
	)
}
