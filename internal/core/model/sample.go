package model

import (
	"sort"
	"time"
)

// Sample is one timestamped observation of cumulative and delta code size
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	TotalBytes uint64    `json:"total_bytes"`
	Delta      int64     `json:"delta"`
	Synthetic  bool      `json:"synthetic,omitempty"` // produced by gap filling
}

// Series is an ordered run of samples for one student and assignment
type Series []Sample

// Clone returns an independent copy
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// IsEmpty reports whether the series has no samples
func (s Series) IsEmpty() bool {
	return len(s) == 0
}

// AllZero reports whether every sample is zero in both size and delta.
// An empty series is all-zero.
func (s Series) AllZero() bool {
	for _, sample := range s {
		if sample.TotalBytes != 0 || sample.Delta != 0 {
			return false
		}
	}
	return true
}

// SortByTime sorts in place by timestamp, keeping input order for equal
// timestamps
func (s Series) SortByTime() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Timestamp.Before(s[j].Timestamp)
	})
}

// Dedup returns a series where each timestamp appears once; for duplicates
// the last sample wins. The receiver must already be sorted.
func (s Series) Dedup() Series {
	if len(s) < 2 {
		return s
	}
	out := make(Series, 0, len(s))
	for _, sample := range s {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(sample.Timestamp) {
			out[n-1] = sample
			continue
		}
		out = append(out, sample)
	}
	return out
}

// Within returns the samples whose timestamp lies inside vp, inclusive
func (s Series) Within(vp Viewport) Series {
	lo := sort.Search(len(s), func(i int) bool {
		return !s[i].Timestamp.Before(vp.XMin)
	})
	hi := sort.Search(len(s), func(i int) bool {
		return s[i].Timestamp.After(vp.XMax)
	})
	if lo >= hi {
		return Series{}
	}
	return s[lo:hi]
}

// Span returns the first and last timestamps; ok is false for an empty series
func (s Series) Span() (first, last time.Time, ok bool) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s[0].Timestamp, s[len(s)-1].Timestamp, true
}

// Peak returns the largest cumulative size
func (s Series) Peak() uint64 {
	var peak uint64
	for _, sample := range s {
		if sample.TotalBytes > peak {
			peak = sample.TotalBytes
		}
	}
	return peak
}
