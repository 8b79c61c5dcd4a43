package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/mzgrab/mzgrab/internal/binenc"
	"github.com/mzgrab/mzgrab/internal/export"
	"github.com/mzgrab/mzgrab/internal/extract"
	"github.com/mzgrab/mzgrab/internal/mzml"
)

// Program name and version, shown by the -version flag
const progName = "mzgrab"

var progVersion = `Unknown`

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type params struct {
	what      *string // Requested outputs (comma separated, or "everything")
	format    *string // Output format name
	outDir    *string // Output directory, empty means next to the input file
	recompute *bool   // Derive BPC/TIC from peak data instead of scalar cvParams
	verbosity int     // Verbosity of progress messages (infoDefault...)
	kinds     []extract.Kind
	outFormat export.Format
	args      []string // Additional values passed on the command line
	debug     bool     // Enable debug info (environment variable MZGRAB_DEBUG=1)
}

// ErrRangeSpec means an invalid range was specified on the command line
var ErrRangeSpec = errors.New("invalid range specified")

// parseIntRange parses a string like "1:6" into 2 values. Parameters
// min and max are the default values assigned when a side is not
// specified (e.g. ":6")
func parseIntRange(r string, min int, max int) (int, int, error) {
	re := regexp.MustCompile(`\s*(\-?\d*):(\-?\d*)`)
	m := re.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.Atoi(m[1])
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 3 && m[2] != "" {
		maxOut, _ = strconv.Atoi(m[2])
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

// sanitizeParams does some checks on parameters and resolves the
// requested outputs and format
func sanitizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if len(par.args) < 1 {
		fmt.Fprintf(os.Stderr, `Last argument(s) must be name(s) of mzML files.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}

	if strings.EqualFold(strings.TrimSpace(*par.what), `everything`) {
		par.kinds = extract.AllKinds()
	} else {
		for _, name := range strings.Split(*par.what, `,`) {
			kind, err := extract.ParseKind(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, `Invalid value for parameter 'what': %v
Type %s --help for usage
`, err, exeName)
				os.Exit(2)
			}
			par.kinds = append(par.kinds, kind)
		}
	}

	var err error
	par.outFormat, err = export.ParseFormat(*par.format)
	if err != nil {
		fmt.Fprintf(os.Stderr, `Invalid value for parameter 'format': %v
Type %s --help for usage
`, err, exeName)
		os.Exit(2)
	}
}

// outputPath builds the output filename for one table:
// <dir>/<input base>_<KIND><format ext>
func outputPath(mzMLFilename string, outDir string, kind extract.Kind,
	format export.Format) string {
	base := filepath.Base(mzMLFilename)
	base = base[0 : len(base)-len(filepath.Ext(base))]
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(mzMLFilename)
	}
	return filepath.Join(dir, base+`_`+kind.String()+format.Ext())
}

// extractOne runs a single extraction operation
func extractOne(par params, f *mzml.MzML, enc binenc.Encoding,
	kind extract.Kind) (extract.Result, error) {
	switch kind {
	case extract.KindMS1:
		return extract.MS1(f, enc)
	case extract.KindMS2:
		return extract.MS2(f, enc)
	case extract.KindBPC:
		if *par.recompute {
			return extract.ComputedBPC(f, enc)
		}
		return extract.BPC(f)
	case extract.KindTIC:
		if *par.recompute {
			return extract.ComputedTIC(f, enc)
		}
		return extract.TIC(f)
	}
	return extract.Result{}, fmt.Errorf("unknown output kind %v", kind)
}

// summarize prints a one-line description of an extracted table
func summarize(res extract.Result) {
	rec := res.Table
	if rec.NumRows() == 0 {
		fmt.Fprintf(os.Stderr, "  0 rows\n")
		return
	}
	rts := rec.Column(0).(*array.Float64).Values()
	intIdxs := rec.Schema().FieldIndices(`int`)
	ints := rec.Column(intIdxs[0]).(*array.Float64).Values()
	sorted := make([]float64, len(ints))
	copy(sorted, ints)
	sort.Float64s(sorted)
	fmt.Fprintf(os.Stderr, "  %d rows, rt %.3f-%.3f min, median int %.5g\n",
		rec.NumRows(),
		floats.Min(rts), floats.Max(rts),
		stat.Quantile(0.5, stat.Empirical, sorted, nil))
}

// processFile extracts and writes all requested tables of one mzML file
func processFile(par params, filename string) error {
	totalStart := time.Now()
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Reading file %s: ", filepath.Base(filename))
	} else if par.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "%s\n", filepath.Base(filename))
	}
	t := time.Now()

	x, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer x.Close()
	f, err := mzml.Read(x)
	if err != nil {
		return fmt.Errorf("mzml.Read %s: %w", filename, err)
	}
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}

	enc, err := extract.EncodingFrom(&f)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if par.debug {
		log.Printf("%s: compression=%s mz width=%d intensity width=%d",
			filepath.Base(filename), enc.Compression, enc.MzWidth, enc.IntWidth)
	}
	debugLogSpecs(&f, enc)

	for _, kind := range par.kinds {
		if par.verbosity == infoVerbose {
			fmt.Fprintf(os.Stderr, "Reading %s data: ", kind)
			t = time.Now()
		}
		res, err := extractOne(par, &f, enc, kind)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", filename, kind, err)
		}
		if par.verbosity == infoVerbose {
			fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
		}
		if len(res.Skipped) > 0 && par.verbosity != infoSilent {
			log.Printf("Warning: %s: %s: skipped %d spectra with undecodable binary data: %s",
				filepath.Base(filename), kind, len(res.Skipped),
				strings.Join(res.Skipped, `, `))
		}

		out := outputPath(filename, *par.outDir, kind, par.outFormat)
		w, err := os.Create(out)
		if err != nil {
			res.Table.Release()
			return fmt.Errorf("create %s: %w", out, err)
		}
		err = export.Write(w, res.Table, par.outFormat)
		if closeErr := w.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			res.Table.Release()
			return fmt.Errorf("write %s: %w", out, err)
		}
		if par.verbosity == infoVerbose {
			summarize(res)
		}
		res.Table.Release()
	}
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Total time: %s\n", time.Since(totalStart))
	}
	return nil
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <mzMLfile>...

  This program extracts mass-spectrometry data from mzML files into flat
  tables: MS1 and MS2 peak lists, base peak chromatograms (BPC) and
  total ion chromatograms (TIC). One table file is written per input
  file per requested output, named <input>_<KIND>.<ext>.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
ENVIRONMENT VARIABLES:
    When environment variable MZGRAB_DEBUG=1, the detected binary
    encoding of each file is logged.

USAGE EXAMPLES:
  %s sample.mzML
    Extract all tables from sample.mzML, write sample_MS1.csv,
    sample_MS2.csv, sample_BPC.csv and sample_TIC.csv next to it.

  %s -what MS1,TIC -format parquet -out results *.mzML
    Extract MS1 peak lists and total ion chromatograms of all mzML
    files into Parquet files in the results directory.
`, exeName, exeName)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var par params

	par.what = flag.String("what", "everything",
		"comma separated list of `outputs` to extract (MS1, MS2, BPC, TIC),\n"+
			`or "everything" for all of them`)
	par.format = flag.String("format", "csv",
		"output `format`: csv, parquet or arrow (Arrow IPC stream)")
	par.outDir = flag.String("out", "",
		"output `directory`. If empty, tables are written next to each input file")
	par.recompute = flag.Bool("recompute", false,
		`derive BPC/TIC from the decoded peak arrays instead of the
per-spectrum scalar values. Use for files whose writer did not record
base peak intensity / total ion current`)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		par.verbosity = infoVerbose
	}
	if *quiet {
		par.verbosity = infoSilent
	}
	par.args = flag.Args()
	// Check if debug output should be enabled
	par.debug = os.Getenv("MZGRAB_DEBUG") == `1`

	sanitizeParams(&par)
	for _, filename := range par.args {
		if err := processFile(par, filename); err != nil {
			log.Fatalf("%v", err)
		}
	}
}
