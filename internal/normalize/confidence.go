package normalize

import "github.com/mist/datasteward/internal/mdf"

// scorer accumulates per-field mapping confidences for a single
// normalization run. A fresh scorer is constructed per invocation and
// discarded with its result, so concurrent runs never share confidence
// state and nothing carries over between unrelated datasets.
type scorer struct {
	total float64
	count int
}

func (s *scorer) add(confidence float64) {
	s.total += confidence
	s.count++
}

// aggregate combines the accumulated per-field confidences with a category
// detection bonus into one [0,1] score. No mappings at all means zero
// confidence.
func (s *scorer) aggregate(category mdf.Category) float64 {
	if s.count == 0 {
		return 0
	}
	avg := s.total / float64(s.count)
	if category != mdf.CategoryUnknown {
		avg *= 1.1
	}
	if avg > 1 {
		return 1
	}
	return avg
}
