package palette

import "sort"

// Quantize reduces rgb (a flat row-major R,G,B byte buffer) to at most
// maxColors distinct colors using median-cut, returning a palette and a
// same-length slice of palette indices. If rgb already has maxColors or
// fewer distinct colors, the mapping is lossless (spec.md §4.6).
func Quantize(rgb []byte, maxColors int) (palette []RGB, indices []int) {
	pixelCount := len(rgb) / 3
	colors := make([]RGB, pixelCount)
	for i := range colors {
		colors[i] = RGB{rgb[i*3], rgb[i*3+1], rgb[i*3+2]}
	}

	distinct := distinctColors(colors)
	if len(distinct) <= maxColors {
		return mapExact(colors, distinct)
	}
	return mapQuantized(colors, distinct, maxColors)
}

func distinctColors(colors []RGB) []RGB {
	seen := make(map[RGB]bool, len(colors))
	var out []RGB
	for _, c := range colors {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func mapExact(colors []RGB, palette []RGB) ([]RGB, []int) {
	index := make(map[RGB]int, len(palette))
	for i, c := range palette {
		index[c] = i
	}
	indices := make([]int, len(colors))
	for i, c := range colors {
		indices[i] = index[c]
	}
	return palette, indices
}

// bucket is one box in the median-cut partition: the set of source colors
// it covers, by index into the original distinct-color slice.
type bucket struct {
	members []int
}

func mapQuantized(colors []RGB, distinct []RGB, maxColors int) ([]RGB, []int) {
	buckets := []bucket{{members: indexRange(len(distinct))}}

	for len(buckets) < maxColors {
		splitIdx, ok := widestSplittable(buckets, distinct)
		if !ok {
			break
		}
		a, b := splitBucket(buckets[splitIdx], distinct)
		buckets[splitIdx] = a
		buckets = append(buckets, b)
	}

	palette := make([]RGB, len(buckets))
	bucketOf := make(map[int]int, len(distinct))
	for bi, bk := range buckets {
		palette[bi] = bucketAverage(bk, distinct)
		for _, memberIdx := range bk.members {
			bucketOf[memberIdx] = bi
		}
	}

	distinctIndex := make(map[RGB]int, len(distinct))
	for i, c := range distinct {
		distinctIndex[c] = i
	}
	indices := make([]int, len(colors))
	for i, c := range colors {
		indices[i] = bucketOf[distinctIndex[c]]
	}
	return palette, indices
}

func indexRange(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

// widestSplittable picks the bucket with the largest color-channel range
// among buckets holding at least 2 distinct colors.
func widestSplittable(buckets []bucket, distinct []RGB) (int, bool) {
	best := -1
	bestRange := -1
	for i, bk := range buckets {
		if len(bk.members) < 2 {
			continue
		}
		_, r := widestChannel(bk, distinct)
		if r > bestRange {
			best = i
			bestRange = r
		}
	}
	if best < 0 || bestRange == 0 {
		return 0, false
	}
	return best, true
}

// widestChannel returns which of R(0)/G(1)/B(2) has the largest spread in
// this bucket, and that spread.
func widestChannel(bk bucket, distinct []RGB) (channel, spread int) {
	minV := [3]int{256, 256, 256}
	maxV := [3]int{-1, -1, -1}
	for _, idx := range bk.members {
		c := distinct[idx]
		v := [3]int{int(c.R), int(c.G), int(c.B)}
		for ch := 0; ch < 3; ch++ {
			if v[ch] < minV[ch] {
				minV[ch] = v[ch]
			}
			if v[ch] > maxV[ch] {
				maxV[ch] = v[ch]
			}
		}
	}
	best, bestSpread := 0, -1
	for ch := 0; ch < 3; ch++ {
		s := maxV[ch] - minV[ch]
		if s > bestSpread {
			best, bestSpread = ch, s
		}
	}
	return best, bestSpread
}

// splitBucket sorts the bucket's members along its widest channel and
// divides them at the median into two new buckets.
func splitBucket(bk bucket, distinct []RGB) (bucket, bucket) {
	ch, _ := widestChannel(bk, distinct)
	members := append([]int(nil), bk.members...)
	sort.Slice(members, func(i, j int) bool {
		return channelValue(distinct[members[i]], ch) < channelValue(distinct[members[j]], ch)
	})
	mid := len(members) / 2
	return bucket{members: members[:mid]}, bucket{members: members[mid:]}
}

func channelValue(c RGB, ch int) byte {
	switch ch {
	case 0:
		return c.R
	case 1:
		return c.G
	default:
		return c.B
	}
}

func bucketAverage(bk bucket, distinct []RGB) RGB {
	var sumR, sumG, sumB int
	for _, idx := range bk.members {
		c := distinct[idx]
		sumR += int(c.R)
		sumG += int(c.G)
		sumB += int(c.B)
	}
	n := len(bk.members)
	if n == 0 {
		return RGB{}
	}
	return RGB{byte(sumR / n), byte(sumG / n), byte(sumB / n)}
}
