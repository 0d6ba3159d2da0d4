package clinical

// HypoglycemiaThreshold is the level in mg/dL at or below which an average is flagged.
const HypoglycemiaThreshold = 70.0

type doseStep struct {
	upTo float64
	dose int
}

// Upper bounds are inclusive. Anything above the last step gets MaxDose.
var doseSteps = []doseStep{
	{upTo: 110, dose: 0},
	{upTo: 150, dose: 1},
	{upTo: 200, dose: 2},
}

// MaxDose is the dose in ml for averages above 200 mg/dL.
const MaxDose = 3

// DoseFor maps a daily average to the suggested insulin dose in ml.
func DoseFor(mean float64) int {
	for _, step := range doseSteps {
		if mean <= step.upTo {
			return step.dose
		}
	}
	return MaxDose
}

// Hypoglycemic reports whether a daily average should be shown as hypoglycemia.
// The dose for such a day is still 0.
func Hypoglycemic(mean float64) bool {
	return mean <= HypoglycemiaThreshold
}

// Mean returns the arithmetic mean of levels and false when levels is empty.
func Mean(levels []float64) (float64, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	var sum float64
	for _, l := range levels {
		sum += l
	}
	return sum / float64(len(levels)), true
}
