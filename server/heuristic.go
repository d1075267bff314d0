package server

import "time"

// Heuristic computes the idle timeout of a session from the number of
// active connections: the timeout shrinks linearly from MaxTimeout with no
// connections to zero at Threshold connections and above.
type Heuristic struct {
	Threshold  int64
	MaxTimeout time.Duration
}

func (h Heuristic) Timeout(active int64) time.Duration {
	if h.Threshold <= 0 {
		return 0
	}
	factor := float64(h.Threshold-active) / float64(h.Threshold)
	if factor < 0 {
		factor = 0
	} else if factor > 1 {
		factor = 1
	}
	return time.Duration(factor * float64(h.MaxTimeout))
}
