package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets through num of every den calls. A zero ratio lets everything through.
type sampler struct {
	ratio atomic.Uint64 // num<<32 | den
	seq   atomic.Uint64
}

func (s *sampler) set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(0)
		return
	}
	num = min(num, den)
	s.ratio.Store(uint64(num)<<32 | uint64(uint32(den)))
}

func (s *sampler) allow() bool {
	r := s.ratio.Load()
	num, den := r>>32, r&0xffffffff
	if num == 0 || den == 0 {
		return true
	}
	return (s.seq.Add(1)-1)%den < num
}

// parseRatio reads "n/d" or a bare "d" (meaning 1/d). ok is false for malformed input.
func parseRatio(spec string) (num, den int, ok bool) {
	spec = strings.TrimSpace(spec)
	a, b, hasSlash := strings.Cut(spec, "/")
	if !hasSlash {
		d, err := strconv.Atoi(a)
		if err != nil {
			return 0, 0, false
		}
		if d <= 0 {
			return 0, 0, true
		}
		return 1, d, true
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(a))
	d, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return n, d, true
}
