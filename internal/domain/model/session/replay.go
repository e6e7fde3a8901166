package session

import "fmt"

// Progress is the position derived from the delivery log
type Progress struct {
	LineIndex  int // count of resolving (non-retry) records
	RetryCount int // retry records written for LineIndex
}

// NextAttempt returns the attempt number the next record for LineIndex carries
func (p Progress) NextAttempt() int {
	return p.RetryCount + 1
}

// ReplayHistory recomputes progress from the ordered delivery log and checks its shape:
// records must be contiguous by line index, attempts must count up from 1,
// and only the last record of a line may resolve it.
func ReplayHistory(history []*Delivery) (Progress, error) {
	var p Progress
	for i, d := range history {
		if d.LineIndex != p.LineIndex {
			return Progress{}, fmt.Errorf("delivery %d (%s): line index %d, expected %d", i, d.ID, d.LineIndex, p.LineIndex)
		}
		if d.Attempt != p.NextAttempt() {
			return Progress{}, fmt.Errorf("delivery %d (%s): attempt %d, expected %d", i, d.ID, d.Attempt, p.NextAttempt())
		}
		if d.Verdict.ResolvesLine() {
			p.LineIndex++
			p.RetryCount = 0
		} else {
			p.RetryCount++
		}
	}
	return p, nil
}
