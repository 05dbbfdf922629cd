package analyzer

import "math"

// SynthesizeStatistics derives illustrative counters from feature counts and
// bounded random draws. Times are in ms and memory in KB.
func SynthesizeStatistics(features QueryFeatures, rnd Rand) StatisticsSnapshot {
	estimated := uniform(rnd, 50, 100) +
		30*len(features.JoinPredicates) +
		10*len(features.WhereConditions)
	if features.HasOrderBy {
		estimated += 40
	}

	return StatisticsSnapshot{
		EstimatedRows:          uniform(rnd, 1000, 9000),
		ActualRows:             uniform(rnd, 1000, 9000),
		EstimatedExecutionTime: estimated,
		ActualExecutionTime:    int(math.Round(float64(estimated) * (0.8 + 0.4*rnd.Float64()))),
		MemoryGrant:            uniform(rnd, 512, 1024),
		CPUTime:                int(math.Round(float64(estimated) * 0.7)),
		LogicalReads:           uniform(rnd, 100, 1000),
	}
}
