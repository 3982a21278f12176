package pipeline

import (
	"math"
	"sort"
)

// Preprocess derives the time-of-week fields for a batch of fixes and returns
// the batch stably sorted by timestamp ascending. It never mutates its input
// and applying it twice yields the same result as applying it once.
func Preprocess(batch []GpsFix) []GpsFix {
	result := make([]GpsFix, len(batch))
	copy(result, batch)
	for i := range result {
		result[i].Day = mondayBasedWeekday(result[i])
		result[i].Hour = result[i].Time.Hour()
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time.Before(result[j].Time)
	})
	return result
}

// mondayBasedWeekday returns the fix's day of week with Monday as 0 and
// Sunday as 6, matching the encoding the model was trained on
func mondayBasedWeekday(fix GpsFix) int {
	return (int(fix.Time.Weekday()) + 6) % 7
}

// StopBinning assigns each next-stop sequence index a congestion bin derived
// by uniform binning of the stop's mean scheduled ETA over [0, max mean ETA].
// Bins are labeled 1 through bins-1.
type StopBinning struct {
	bins  int
	width float64
	bySeq map[int]float64
}

// MakeStopBinning builds a StopBinning over meanEtaBySeq with the given
// number of bin edges
func MakeStopBinning(meanEtaBySeq map[int]float64, bins int) StopBinning {
	maxEta := 0.0
	for _, eta := range meanEtaBySeq {
		if eta > maxEta {
			maxEta = eta
		}
	}
	width := 0.0
	if bins > 1 {
		width = maxEta / float64(bins-1)
	}
	return StopBinning{bins: bins, width: width, bySeq: meanEtaBySeq}
}

// Bin returns the congestion bin for the stop at nextStopSeq, clamped to
// [1, bins-1]. Unknown sequence indices land in the first bin.
func (b StopBinning) Bin(nextStopSeq int) int {
	eta, present := b.bySeq[nextStopSeq]
	if !present || b.width == 0 || eta <= 0 {
		return 1
	}
	bin := int(math.Ceil(eta / b.width))
	if bin < 1 {
		bin = 1
	}
	if bin > b.bins-1 {
		bin = b.bins - 1
	}
	return bin
}

// BinNextStopCongestion writes each fix's congestion bin from its next-stop
// sequence index. Pure; returns a new slice.
func BinNextStopCongestion(batch []ContextFix, binning StopBinning) []ContextFix {
	result := make([]ContextFix, len(batch))
	copy(result, batch)
	for i := range result {
		result[i].CongestionBin = binning.Bin(result[i].NextStopSeq)
	}
	return result
}
