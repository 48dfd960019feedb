package scoring

import "math"

// 下面的统计量基于每周权益快照序列计算,快照不足时返回 0 而不是 NaN。

// PeriodReturns converts an equity curve into simple period returns.
func PeriodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, values[i]/prev-1)
	}
	return out
}

// SharpeRatio 年化夏普比率,periodsPerYear 对每周快照取 52。
func SharpeRatio(returns []float64, riskFreeAnnual float64, periodsPerYear float64) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	rf := riskFreeAnnual / periodsPerYear
	mean := 0.0
	for _, r := range returns {
		mean += r - rf
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := (r - rf) - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(periodsPerYear)
}

// MaxDrawdown returns the largest peak-to-trough decline as a positive
// fraction, e.g. 0.25 for a 25% drawdown.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	peak := values[0]
	worst := 0.0
	for _, v := range values[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
