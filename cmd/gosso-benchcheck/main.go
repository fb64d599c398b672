// Command gosso-benchcheck compares two `go test -bench` outputs and fails
// when a tracked hot path got slower than the allowed ratio.
//
//	go test -run '^$' -bench . -count 5 . > new.txt
//	gosso-benchcheck -baseline old.txt -candidate new.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// tracked lists the request-path benchmarks and the units checked for each.
var tracked = map[string][]string{
	"BenchmarkAuthenticate":             {"ns/op", "allocs/op"},
	"BenchmarkNewSessionByRefreshToken": {"ns/op"},
	"BenchmarkCaptchaRoundTrip":         {"ns/op"},
	"BenchmarkMetricsIncParallel":       {"ns/op"},
}

// samples maps benchmark name to unit to the values of every run.
type samples map[string]map[string][]float64

type comparison struct {
	Benchmark string
	Unit      string
	Baseline  float64
	Candidate float64
}

func (c comparison) Delta() float64 {
	return (c.Candidate - c.Baseline) / c.Baseline
}

func main() {
	baselinePath := flag.String("baseline", "", "benchmark output of the reference build")
	candidatePath := flag.String("candidate", "", "benchmark output of the build under test")
	threshold := flag.Float64("threshold", 0.30, "largest tolerated slowdown, as a ratio")
	flag.Parse()

	if *baselinePath == "" || *candidatePath == "" || *threshold < 0 {
		flag.Usage()
		os.Exit(2)
	}

	baseline, err := readFile(*baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := readFile(*candidatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "candidate: %v\n", err)
		os.Exit(1)
	}

	results, problems := compare(baseline, candidate)
	problems = append(problems, regressions(results, *threshold)...)
	printTable(os.Stdout, results)

	if len(problems) > 0 {
		fmt.Fprintln(os.Stderr, "benchmark check failed:")
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		os.Exit(1)
	}
}

func readFile(path string) (samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

// parse collects the tracked benchmark lines from r. Lines look like
// "BenchmarkAuthenticate-8  120000  9512 ns/op  1024 B/op  12 allocs/op".
func parse(r io.Reader) (samples, error) {
	out := samples{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}
		name := trimProcs(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		units := out[name]
		if units == nil {
			units = map[string][]float64{}
			out[name] = units
		}
		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			units[fields[i+1]] = append(units[fields[i+1]], v)
		}
	}
	return out, sc.Err()
}

// trimProcs drops the GOMAXPROCS suffix go test appends to benchmark names.
func trimProcs(name string) string {
	i := strings.LastIndexByte(name, '-')
	if i <= 0 {
		return name
	}
	if _, err := strconv.Atoi(name[i+1:]); err != nil {
		return name
	}
	return name[:i]
}

// compare pairs the medians of every tracked benchmark. Missing or unusable
// samples are reported as problems.
func compare(baseline, candidate samples) ([]comparison, []string) {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		results  []comparison
		problems []string
	)
	for _, name := range names {
		for _, unit := range tracked[name] {
			base, cand := baseline[name][unit], candidate[name][unit]
			if len(base) == 0 || len(cand) == 0 {
				problems = append(problems, fmt.Sprintf("%s %s: no samples", name, unit))
				continue
			}
			c := comparison{Benchmark: name, Unit: unit, Baseline: median(base), Candidate: median(cand)}
			if c.Baseline <= 0 {
				problems = append(problems, fmt.Sprintf("%s %s: baseline median is %v", name, unit, c.Baseline))
				continue
			}
			results = append(results, c)
		}
	}
	return results, problems
}

func regressions(results []comparison, threshold float64) []string {
	var out []string
	for _, c := range results {
		if d := c.Delta(); d > threshold {
			out = append(out, fmt.Sprintf("%s %s: %+.2f%% (limit %+.2f%%)", c.Benchmark, c.Unit, d*100, threshold*100))
		}
	}
	return out
}

func printTable(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "benchmark unit baseline candidate delta")
	for _, c := range results {
		fmt.Fprintf(w, "%s %s %.3f %.3f %+.2f%%\n", c.Benchmark, c.Unit, c.Baseline, c.Candidate, c.Delta()*100)
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
