package domain

// SelectionCriteria steers strategy scoring toward a single optimization goal.
type SelectionCriteria string

const (
	CriteriaSpeed    SelectionCriteria = "speed"
	CriteriaMemory   SelectionCriteria = "memory"
	CriteriaQuality  SelectionCriteria = "quality"
	CriteriaBalanced SelectionCriteria = "balanced"
)

// AllowedCriteria maps wire values to SelectionCriteria.
var AllowedCriteria = map[string]SelectionCriteria{
	"speed":    CriteriaSpeed,
	"memory":   CriteriaMemory,
	"quality":  CriteriaQuality,
	"balanced": CriteriaBalanced,
}

// ParseCriteria validates a wire value. Empty input falls back to balanced.
func ParseCriteria(s string) (SelectionCriteria, error) {
	if s == "" {
		return CriteriaBalanced, nil
	}
	c, ok := AllowedCriteria[s]
	if !ok {
		return "", ErrInvalidCriteria
	}
	return c, nil
}

// Priority classifies an allocation request for memory admission decisions.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityRanks = map[Priority]int{
	PriorityLow:      0,
	PriorityNormal:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Rank returns the ordering of a priority; unknown values rank as low.
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// ParsePriority validates a wire value. Empty input falls back to normal.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	p := Priority(s)
	if _, ok := priorityRanks[p]; !ok {
		return "", ErrInvalidPriority
	}
	return p, nil
}
