package plot

import (
	"sort"
	"strconv"
	"strings"
)

var canonicalNames = func() map[string]bool {
	names := map[string]bool{"X": true, "Y": true, "M": true, "MT": true}
	for i := 1; i <= 22; i++ {
		names[strconv.Itoa(i)] = true
	}
	return names
}()

// displayName strips the chr prefix; ok is false for non-canonical
// chromosomes (contigs, alts, decoys).
func displayName(chrom string) (string, bool) {
	name := strings.TrimPrefix(chrom, "chr")
	return name, canonicalNames[name]
}

// chromLess orders autosomes numerically, then X, Y and the mitochondrion
func chromLess(a, b string) bool {
	ra, rb := chromRank(a), chromRank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

func chromRank(name string) int {
	if n, err := strconv.Atoi(name); err == nil {
		return n
	}
	switch name {
	case "X":
		return 100
	case "Y":
		return 101
	}
	return 102
}

// canonicalMeans returns the means of canonical chromosomes in karyotype
// order, keyed by display name.
func canonicalMeans(means map[string]float64) []chromMean {
	var out []chromMean
	for chrom, mean := range means {
		name, ok := displayName(chrom)
		if !ok || mean <= 0 {
			continue
		}
		out = append(out, chromMean{name: name, mean: mean})
	}
	sort.Slice(out, func(i, j int) bool { return chromLess(out[i].name, out[j].name) })
	return out
}
