package rules

import "math"

// Human-proxy bonus constants.
const (
	proxyBaseBonus      = 1.2
	proxyLevelBonus     = 0.01
	proxyResourceFactor = 0.1
)

// TrainingBonusStep is the income bonus an AI employee gains per training level.
const TrainingBonusStep = 0.005

// DismissalMultiplier scales salary into the compensation paid on dismissal.
const DismissalMultiplier = 2

// LevelUpIncomeGrowth multiplies a company's base income on every level-up.
const LevelUpIncomeGrowth = 1.2

// ResourceValue weighs offered hardware into a single score.
func ResourceValue(memory, cpu, bandwidth, computing float64) float64 {
	return memory*10 + cpu*20 + bandwidth*0.1 + computing*5
}

// HumanProxyBonus is the income bonus of a human proxy worker or resume.
func HumanProxyBonus(level int, memory, cpu, bandwidth, computing float64) float64 {
	value := ResourceValue(memory, cpu, bandwidth, computing)
	return 1 + proxyBaseBonus + float64(level)*proxyLevelBonus + value/100*proxyResourceFactor
}

// AggregateBonus sums each bonus's excess over the 1.0 baseline. Bonuses stack additively, not multiplicatively.
func AggregateBonus(bonuses []float64) float64 {
	total := 1.0
	for _, b := range bonuses {
		total += b - 1
	}
	return total
}

// DismissalCompensation is what the dismissing party pays out.
func DismissalCompensation(salary int64) int64 {
	return salary * DismissalMultiplier
}

// NextLevelThresholds returns the income and headcount a company needs to reach its next level.
func NextLevelThresholds(baseIncome float64, level, maxEmployees int) (float64, int) {
	requiredIncome := baseIncome * (2 + float64(level)*0.5)
	requiredEmployees := min(3+level, maxEmployees)
	return requiredIncome, requiredEmployees
}

// JobPayout scales a base salary by a proficiency percentage.
func JobPayout(baseSalary int64, masteryPercent float64) int64 {
	if masteryPercent <= 0 {
		return 0
	}
	return int64(math.Round(float64(baseSalary) * masteryPercent / 100))
}

// ExperienceForLevel is the experience needed to leave level.
func ExperienceForLevel(level int) int64 {
	return int64(level) * 100
}

// JobSlots returns how many concurrent jobs a player of level may hold.
func JobSlots(level int) int {
	return min(1+(max(level, 1)-1)/5, 5)
}

// BaseActivityData is the data a player's own activity generates per tick, scaled by how busy the machine is.
// A fully idle machine produces the base amount, a saturated one twice as much.
func BaseActivityData(averageIdlePercent float64) float64 {
	const base = 0.05
	idle := math.Max(0, math.Min(100, averageIdlePercent))
	return base * (2 - idle/100)
}
