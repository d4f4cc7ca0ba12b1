package metrics

import "math"

// rollingMean matches pandas' rolling(n).mean() with its default
// min_periods=n: the result is only non-null when all n most-recent
// values are present.
func rollingMean(values []*float64, n int) *float64 {
	window, ok := lastWindow(values, n)
	if !ok {
		return nil
	}
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(n)
	return &mean
}

func rollingMax(values []*float64, n int) *float64 {
	window, ok := lastWindow(values, n)
	if !ok {
		return nil
	}
	max := window[0]
	for _, v := range window[1:] {
		if v > max {
			max = v
		}
	}
	return &max
}

func rollingMin(values []*float64, n int) *float64 {
	window, ok := lastWindow(values, n)
	if !ok {
		return nil
	}
	min := window[0]
	for _, v := range window[1:] {
		if v < min {
			min = v
		}
	}
	return &min
}

// rollingStdev is the sample standard deviation (ddof=1), matching
// pandas' rolling(n).std() default.
func rollingStdev(values []*float64, n int) *float64 {
	window, ok := lastWindow(values, n)
	if !ok || n < 2 {
		return nil
	}
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	stdev := math.Sqrt(sq / float64(n-1))
	return &stdev
}

// lastWindow returns the trailing n values of the series as a plain
// []float64 only if there are at least n entries and every one of the
// trailing n is non-nil; otherwise ok is false.
func lastWindow(values []*float64, n int) ([]float64, bool) {
	if len(values) < n {
		return nil, false
	}
	tail := values[len(values)-n:]
	out := make([]float64, n)
	for i, v := range tail {
		if v == nil {
			return nil, false
		}
		out[i] = *v
	}
	return out, true
}

// pctChangeSeries computes close.pctChange(n) for every index as a
// parallel []*float64 (nil where either endpoint is missing or the
// earlier value is zero). Used to build the daily-return series that
// vol_20d's rolling stdev consumes.
func pctChangeSeries(closes []*float64, n int) []*float64 {
	out := make([]*float64, len(closes))
	for i := range closes {
		if i < n {
			continue
		}
		cur, prev := closes[i], closes[i-n]
		if cur == nil || prev == nil || *prev == 0 {
			continue
		}
		v := *cur/ *prev - 1
		out[i] = &v
	}
	return out
}

// pctChangeAt computes close.pctChange(n) for only the last index of
// the series (the rolling engine only ever needs the last row).
func pctChangeAt(closes []*float64, n int) *float64 {
	if len(closes) <= n {
		return nil
	}
	last := len(closes) - 1
	cur, prev := closes[last], closes[last-n]
	if cur == nil || prev == nil || *prev == 0 {
		return nil
	}
	v := *cur/ *prev - 1
	return &v
}
