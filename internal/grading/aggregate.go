package grading

// Summary is the final aggregate of an attempt: total awarded score against
// the frozen maximum, the derived percentage and the pass verdict.
type Summary struct {
	Score      float64
	MaxScore   float64
	Percentage float64
	Passed     bool
}

// Summarize folds the total awarded score into a final verdict. maxScore is
// the attempt's frozen maximum captured at creation; exam edits after that
// point cannot change the outcome. The percentage is clamped to [0, 100] and
// exact equality with passingPercentage counts as passing.
func Summarize(totalScore, maxScore, passingPercentage float64) Summary {
	if totalScore < 0 {
		totalScore = 0
	}
	if totalScore > maxScore {
		totalScore = maxScore
	}

	percentage := 0.0
	if maxScore > 0 {
		percentage = totalScore / maxScore * 100
	}
	if percentage > 100 {
		percentage = 100
	}

	return Summary{
		Score:      totalScore,
		MaxScore:   maxScore,
		Percentage: percentage,
		Passed:     percentage >= passingPercentage,
	}
}
