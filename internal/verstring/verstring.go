// Copyright 2026 The pvcheck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package verstring implements the string-similarity tie-break used when
// more than one candidate tag matches a declared version equally well. It
// reproduces Python's difflib.SequenceMatcher.ratio() exactly, since the
// repository-suggestion engine's tag resolution depends on its specific
// matching-blocks algorithm rather than any general edit-distance metric.
package verstring

// Ratio returns a measure of the similarity of a and b in [0, 1], computed
// the same way as Python's difflib.SequenceMatcher(None, a, b).ratio():
// twice the number of characters in the matching blocks, divided by the
// total length of both strings.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	matches := matchingBlockLength(ra, rb)
	return 2.0 * float64(matches) / float64(len(ra)+len(rb))
}

// matchingBlockLength sums the lengths of the matching blocks found by the
// same recursive longest-matching-subsequence procedure difflib uses: find
// the longest contiguous match, then recurse on the unmatched left and
// right remainders.
func matchingBlockLength(a, b []rune) int {
	type block struct{ aStart, bStart, size int }
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	var find func(alo, ahi, blo, bhi int) block
	find = func(alo, ahi, blo, bhi int) block {
		best := block{alo, blo, 0}
		j2len := map[int]int{}
		for i := alo; i < ahi; i++ {
			newj2len := map[int]int{}
			for _, j := range b2j[a[i]] {
				if j < blo {
					continue
				}
				if j >= bhi {
					break
				}
				k := j2len[j-1] + 1
				newj2len[j] = k
				if k > best.size {
					best = block{i - k + 1, j - k + 1, k}
				}
			}
			j2len = newj2len
		}
		return best
	}
	var total int
	var recurse func(alo, ahi, blo, bhi int)
	recurse = func(alo, ahi, blo, bhi int) {
		if alo >= ahi || blo >= bhi {
			return
		}
		m := find(alo, ahi, blo, bhi)
		if m.size == 0 {
			return
		}
		total += m.size
		recurse(alo, m.aStart, blo, m.bStart)
		recurse(m.aStart+m.size, ahi, m.bStart+m.size, bhi)
	}
	recurse(0, len(a), 0, len(b))
	return total
}

// BestMatch returns the index into candidates with the highest Ratio
// against target, breaking ties by preferring the earlier candidate (the
// same tie-break used when a tag tier yields more than one equally-scored
// match).
func BestMatch(target string, candidates []string) int {
	best := -1
	var bestRatio float64
	for i, c := range candidates {
		r := Ratio(target, c)
		if best == -1 || r > bestRatio {
			best, bestRatio = i, r
		}
	}
	return best
}
