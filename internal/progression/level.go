// Package progression holds the experience rewards and the level curve.
package progression

// Experience rewards.
const (
	PostCreateExp  int64 = 10
	LikeGainExp    int64 = 2
	LikeReceiveExp int64 = 5
)

// band maps [from, to) onto levels base + (exp-from)/step. step 0 means a flat band.
type band struct {
	from, to int64
	base     int
	step     int64
}

// The curve has flat plateaus at 10, 20, 50 and 100.
var curve = []band{
	{0, 10, 1, 0},
	{10, 30, 2, 0},
	{30, 60, 3, 0},
	{60, 100, 4, 0},
	{100, 150, 5, 0},
	{150, 350, 6, 50},
	{350, 450, 10, 0},
	{450, 1450, 11, 100},
	{1450, 1550, 20, 0},
	{1550, 7350, 21, 200},
	{7350, 7650, 50, 0},
	{7650, 22350, 51, 300},
	{22350, 22850, 100, 0},
}

const (
	openFrom int64 = 22850
	openBase       = 101
	openStep int64 = 500
)

// LevelForExperience returns the level reached at exp points. Negative input counts as 0.
func LevelForExperience(exp int64) int {
	if exp < 0 {
		exp = 0
	}
	if exp >= openFrom {
		return openBase + int((exp-openFrom)/openStep)
	}
	for _, b := range curve {
		if exp >= b.to {
			continue
		}
		if b.step == 0 {
			return b.base
		}
		return b.base + int((exp-b.from)/b.step)
	}
	return openBase
}

// ExperienceForLevel returns the smallest experience total that reaches level.
func ExperienceForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level >= openBase {
		return openFrom + int64(level-openBase)*openStep
	}
	for _, b := range curve {
		top := b.base
		if b.step > 0 {
			top = b.base + int((b.to-b.from-1)/b.step)
		}
		if level > top {
			continue
		}
		if b.step == 0 || level <= b.base {
			return b.from
		}
		return b.from + int64(level-b.base)*b.step
	}
	return openFrom
}
