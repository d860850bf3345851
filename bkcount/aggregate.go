package bkcount

import "sort"

// LeaderCount is a single-mode aggregated (leader, count) entry.
type LeaderCount struct {
	Leader uint64
	Count  uint64
}

// PairCount is a pair-mode aggregated (leader, follower, count) entry.
type PairCount struct {
	Leader, Follower uint64
	Count            uint64
}

// PolyACGTFilter drops leaders containing a run of poly_len identical
// bases, checked directly on the 2-bit packed representation. A poly_len of
// 0 disables the filter, matching IsPolyACGT's documented contract.
type PolyACGTFilter struct {
	PolyLen int
}

// IsPolyACGT reports whether leader (packed, n bases) contains a run of at
// least f.PolyLen identical 2-bit symbols.
func (f PolyACGTFilter) IsPolyACGT(leader uint64, n int) bool {
	if f.PolyLen <= 0 {
		return false
	}
	run := 1
	prev := uint8(leader >> (2 * uint(n-1)) & 3)
	if run >= f.PolyLen {
		return true
	}
	for i := n - 2; i >= 0; i-- {
		sym := uint8(leader >> (2 * uint(i)) & 3)
		if sym == prev {
			run++
			if run >= f.PolyLen {
				return true
			}
		} else {
			run = 1
			prev = sym
		}
	}
	return false
}

// ArtifactsFilter drops leaders containing any k-mer from a configured
// allowlist, such as the Illumina-adapter set expressed as 12-mers.
type ArtifactsFilter struct {
	// KmerSets maps a substring width k to the set of packed k-mers (each
	// in [0, 4^k)) that mark a leader as an artifact.
	KmerSets map[int]map[uint64]struct{}
}

// ContainsArtifact reports whether leader (packed, n bases) contains, at
// any offset, any k-mer present in one of f.KmerSets' allowlists.
func (f ArtifactsFilter) ContainsArtifact(leader uint64, n int) bool {
	for k, set := range f.KmerSets {
		if k <= 0 || k > n || len(set) == 0 {
			continue
		}
		mask := uint64(1)<<(2*uint(k)) - 1
		for start := 0; start+k <= n; start++ {
			shift := 2 * uint(n-start-k)
			sub := (leader >> shift) & mask
			if _, ok := set[sub]; ok {
				return true
			}
		}
	}
	return false
}

// encodeKmer packs a short ASCII DNA string into a 2-bit word, used to build
// the Illumina-adapter allowlist from literal sequences.
func encodeKmer(s string) (uint64, bool) {
	var code = map[byte]uint64{'A': 0, 'C': 1, 'G': 2, 'T': 3}
	var w uint64
	for i := 0; i < len(s); i++ {
		b, ok := code[s[i]]
		if !ok {
			return 0, false
		}
		w = (w << 2) | b
	}
	return w, true
}

// illuminaAdapterSeqs lists a handful of well-known Illumina adapter/index
// sequences; NewIlluminaAdapterFilter slides 12-mers out of each to build
// the default artifact allowlist.
var illuminaAdapterSeqs = []string{
	"AGATCGGAAGAGCACACGTCTGAACTCCAGTCA", // TruSeq R1 adapter
	"AGATCGGAAGAGCGTCGTGTAGGGAAAGAGTGT", // TruSeq R2 adapter
}

// NewIlluminaAdapterFilter builds the default 12-mer artifact allowlist
// from illuminaAdapterSeqs.
func NewIlluminaAdapterFilter() ArtifactsFilter {
	const k = 12
	set := make(map[uint64]struct{})
	for _, seq := range illuminaAdapterSeqs {
		for start := 0; start+k <= len(seq); start++ {
			if w, ok := encodeKmer(seq[start : start+k]); ok {
				set[w] = struct{}{}
			}
		}
	}
	return ArtifactsFilter{KmerSets: map[int]map[uint64]struct{}{k: set}}
}

// AggregateLeaders counts single-mode emissions: sort, run-length
// collapse, drop polyACGT/artifact groups during collapse, then drop whole
// leaders whose total count doesn't exceed rareLeaderThr.
func AggregateLeaders(leaders []uint64, leaderLen int, poly PolyACGTFilter, artifacts ArtifactsFilter, rareLeaderThr uint64) []LeaderCount {
	sort.Slice(leaders, func(i, j int) bool { return leaders[i] < leaders[j] })

	var counts []LeaderCount
	for _, l := range leaders {
		if n := len(counts); n > 0 && counts[n-1].Leader == l {
			counts[n-1].Count++
			continue
		}
		if n := len(counts); n > 0 && isArtifactLeader(counts[n-1].Leader, leaderLen, poly, artifacts) {
			counts = counts[:n-1]
		}
		counts = append(counts, LeaderCount{Leader: l, Count: 1})
	}
	if n := len(counts); n > 0 && isArtifactLeader(counts[n-1].Leader, leaderLen, poly, artifacts) {
		counts = counts[:n-1]
	}

	return filterRareLeaders(counts, rareLeaderThr)
}

// AggregatePairs counts pair-mode emissions: identical shape to
// AggregateLeaders, but the sort/collapse key is (leader, follower) while
// the polyACGT/artifact predicates and the rare-leader filter only ever
// look at the leader half.
func AggregatePairs(pairs []PairCount, leaderLen int, poly PolyACGTFilter, artifacts ArtifactsFilter, rareLeaderThr uint64) []PairCount {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Leader != pairs[j].Leader {
			return pairs[i].Leader < pairs[j].Leader
		}
		return pairs[i].Follower < pairs[j].Follower
	})

	var counts []PairCount
	for _, p := range pairs {
		if n := len(counts); n > 0 && counts[n-1].Leader == p.Leader && counts[n-1].Follower == p.Follower {
			counts[n-1].Count++
			continue
		}
		if n := len(counts); n > 0 && isArtifactLeader(counts[n-1].Leader, leaderLen, poly, artifacts) {
			counts = counts[:n-1]
		}
		counts = append(counts, PairCount{Leader: p.Leader, Follower: p.Follower, Count: 1})
	}
	if n := len(counts); n > 0 && isArtifactLeader(counts[n-1].Leader, leaderLen, poly, artifacts) {
		counts = counts[:n-1]
	}

	return filterRarePairLeaders(counts, rareLeaderThr)
}

func isArtifactLeader(leader uint64, leaderLen int, poly PolyACGTFilter, artifacts ArtifactsFilter) bool {
	return poly.IsPolyACGT(leader, leaderLen) || artifacts.ContainsArtifact(leader, leaderLen)
}

// filterRareLeaders groups by leader again and drops every group whose
// summed count is <= rareLeaderThr, matching filter_rare_leader_sample_cbc.
func filterRareLeaders(counts []LeaderCount, thr uint64) []LeaderCount {
	if thr < 1 {
		return counts
	}
	out := counts[:0]
	i := 0
	for i < len(counts) {
		j := i + 1
		var sum uint64 = counts[i].Count
		for j < len(counts) && counts[j].Leader == counts[i].Leader {
			sum += counts[j].Count
			j++
		}
		if sum > thr {
			out = append(out, counts[i:j]...)
		}
		i = j
	}
	return out
}

func filterRarePairLeaders(counts []PairCount, thr uint64) []PairCount {
	if thr < 1 {
		return counts
	}
	out := counts[:0]
	i := 0
	for i < len(counts) {
		j := i + 1
		var sum uint64 = counts[i].Count
		for j < len(counts) && counts[j].Leader == counts[i].Leader {
			sum += counts[j].Count
			j++
		}
		if sum > thr {
			out = append(out, counts[i:j]...)
		}
		i = j
	}
	return out
}
