// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"flag"
	"fmt"

	"github.com/mzgrab/mzgrab/internal/binenc"
	"github.com/mzgrab/mzgrab/internal/mzml"
)

var debugSpecs *string // Print debug output for given spectrum range

func init() {
	debugSpecs = flag.String("debug", "",
		"Print decoded peak data for given spectrum `range` e.g. 3:6")
}

// debugLogSpecs prints the decoded peaks of the spectra in the range
// given by the -debug flag
func debugLogSpecs(f *mzml.MzML, enc binenc.Encoding) {
	if *debugSpecs == `` {
		return
	}
	debugMin, debugMax, _ := parseIntRange(*debugSpecs, 0, f.NumSpecs()-1)
	for i := debugMin; i <= debugMax; i++ {
		id, _ := f.ScanID(i)
		level, _ := f.MSLevel(i)
		st, _ := f.ScanStartTime(i)
		fmt.Printf("Spectrum:%d id:%s level:%d rt:%f %s\n",
			i, id, level, st.Value, st.UnitName)

		mzB64, err := f.BinaryData(i, binenc.KindMz)
		if err != nil {
			fmt.Printf("  mz array: %v\n", err)
			continue
		}
		mz, err := binenc.Decode(mzB64, enc.Width(binenc.KindMz), enc.Compression)
		if err != nil {
			fmt.Printf("  mz array: %v\n", err)
			continue
		}
		intB64, err := f.BinaryData(i, binenc.KindIntensity)
		if err != nil {
			fmt.Printf("  intensity array: %v\n", err)
			continue
		}
		intens, err := binenc.Decode(intB64, enc.Width(binenc.KindIntensity), enc.Compression)
		if err != nil {
			fmt.Printf("  intensity array: %v\n", err)
			continue
		}
		for j := range mz {
			if j < len(intens) {
				fmt.Printf("%d mz:%f intens:%f\n", j, mz[j], intens[j])
			}
		}
	}
}
