package record

// RoundingPolicy selects how mileages are rounded before a vendor call
type RoundingPolicy string

const (
	// RoundUp rounds up to the next multiple of the step (canonical policy)
	RoundUp RoundingPolicy = "up"
	// RoundNearest rounds to the nearest multiple of the step (variant policy
	// observed in some deployments)
	RoundNearest RoundingPolicy = "nearest"
)

// Round rounds mileage at the given step under the policy. Step must be
// positive; unknown policies fall back to RoundUp.
func (p RoundingPolicy) Round(mileage, step int) int {
	if step <= 0 {
		return mileage
	}
	switch p {
	case RoundNearest:
		return (mileage + step/2) / step * step
	default:
		return (mileage + step - 1) / step * step
	}
}
