package iterators

import "math/rand"

// BalancedBatches partitions the index range [0, nItems) into
// ceil(nItems/batchSize) groups. Group sizes differ by at most one, except
// that the final group may be smaller when nItems is not a multiple of
// batchSize; together the groups cover every index exactly once.
//
// When shuffle is true the indices are permuted once with rng before being
// cut into contiguous groups. The permutation consumes generator state, so
// repeated calls on the same rng produce different orders; reseeding the
// generator replays the same sequence of orders. rng may be nil when
// shuffle is false.
//
// nItems == 0 yields no groups. batchSize must be >= 1; the caller
// (CropsFromTrialsIterator) validates it at construction.
func BalancedBatches(nItems, batchSize int, shuffle bool, rng *rand.Rand) [][]int {
	if nItems <= 0 {
		return nil
	}
	indices := make([]int, nItems)
	for i := range indices {
		indices[i] = i
	}
	if shuffle {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	nBatches := (nItems + batchSize - 1) / batchSize
	groups := make([][]int, 0, nBatches)
	for start := 0; start < nItems; start += batchSize {
		stop := start + batchSize
		if stop > nItems {
			stop = nItems
		}
		groups = append(groups, indices[start:stop])
	}
	return groups
}
