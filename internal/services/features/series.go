package features

import "math"

// series is a fixed-capacity ring buffer of float64 samples.
type series struct {
	buf []float64
	i   int
	n   int
}

func newSeries(capacity int) *series { return &series{buf: make([]float64, capacity)} }

func (s *series) push(v float64) {
	s.buf[s.i%len(s.buf)] = v
	s.i++
	if s.n < len(s.buf) {
		s.n++
	}
}

func (s *series) len() int   { return s.n }
func (s *series) full() bool { return s.n == len(s.buf) }

// last returns the most recent sample.
func (s *series) last() float64 {
	if s.n == 0 {
		return 0
	}
	return s.buf[(s.i-1)%len(s.buf)]
}

// ago returns the sample k pushes before the most recent one, so ago(0)
// is the latest. ok is false when the buffer does not reach back that far.
func (s *series) ago(k int) (float64, bool) {
	if k < 0 || k >= s.n {
		return 0, false
	}
	idx := (s.i - 1 - k) % len(s.buf)
	if idx < 0 {
		idx += len(s.buf)
	}
	return s.buf[idx], true
}

// meanLast averages the most recent k samples, or fewer if that is all
// there is.
func (s *series) meanLast(k int) float64 {
	if k > s.n {
		k = s.n
	}
	if k == 0 {
		return 0
	}
	sum := 0.0
	for j := 0; j < k; j++ {
		v, _ := s.ago(j)
		sum += v
	}
	return sum / float64(k)
}

// stdLast is the population standard deviation of the most recent k samples.
func (s *series) stdLast(k int) float64 {
	if k > s.n {
		k = s.n
	}
	if k == 0 {
		return 0
	}
	m := s.meanLast(k)
	vs := 0.0
	for j := 0; j < k; j++ {
		v, _ := s.ago(j)
		d := v - m
		vs += d * d
	}
	return math.Sqrt(vs / float64(k))
}

// minMaxLast returns the extremes over the most recent k samples.
func (s *series) minMaxLast(k int) (float64, float64) {
	if k > s.n {
		k = s.n
	}
	if k == 0 {
		return 0, 0
	}
	lo, _ := s.ago(0)
	hi := lo
	for j := 1; j < k; j++ {
		v, _ := s.ago(j)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// scale multiplies every stored sample by f.
func (s *series) scale(f float64) {
	for j := 0; j < s.n; j++ {
		idx := (s.i - 1 - j) % len(s.buf)
		if idx < 0 {
			idx += len(s.buf)
		}
		s.buf[idx] *= f
	}
}
