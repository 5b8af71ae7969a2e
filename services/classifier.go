package services

// Belt is a named XP tier. Belts are derived from total XP, never stored.
type Belt struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	MinXP int64  `json:"min_xp"`
	Color int    `json:"-"` // embed color for announcements
}

// Belts are ordered by MinXP ascending; the first entry starts at 0.
var Belts = []Belt{
	{ID: "white", Name: "White Belt", MinXP: 0, Color: 0xF5F5F5},
	{ID: "yellow", Name: "Yellow Belt", MinXP: 50, Color: 0xFACC15},
	{ID: "orange", Name: "Orange Belt", MinXP: 150, Color: 0xF97316},
	{ID: "green", Name: "Green Belt", MinXP: 300, Color: 0x22C55E},
	{ID: "blue", Name: "Blue Belt", MinXP: 500, Color: 0x3B82F6},
	{ID: "purple", Name: "Purple Belt", MinXP: 800, Color: 0xA855F7},
	{ID: "brown", Name: "Brown Belt", MinXP: 1200, Color: 0x92400E},
	{ID: "black", Name: "Black Belt", MinXP: 1800, Color: 0x111827},
}

// LevelThresholds[i] is the minimum total XP for level i+1.
var LevelThresholds = []int64{0, 50, 120, 200, 300, 420, 560, 720, 900, 1100, 1350, 1650, 2000, 2400, 2850}

// BeltForXP returns the highest belt whose threshold is <= xp.
func BeltForXP(xp int64) Belt {
	belt := Belts[0]
	for _, b := range Belts {
		if xp < b.MinXP {
			break
		}
		belt = b
	}
	return belt
}

// NextBelt returns the belt after the one xp sits in; false at the top belt.
func NextBelt(xp int64) (Belt, bool) {
	for _, b := range Belts {
		if xp < b.MinXP {
			return b, true
		}
	}
	return Belt{}, false
}

// LevelForXP returns the 1-based level for xp.
func LevelForXP(xp int64) int {
	level := 1
	for i, threshold := range LevelThresholds {
		if xp < threshold {
			break
		}
		level = i + 1
	}
	return level
}

// XPForLevel returns the minimum XP of a level, clamped to the table.
func XPForLevel(level int) int64 {
	switch {
	case level <= 1:
		return 0
	case level > len(LevelThresholds):
		return LevelThresholds[len(LevelThresholds)-1]
	default:
		return LevelThresholds[level-1]
	}
}

// NextLevelXP returns the XP needed for the next level; false at max level.
func NextLevelXP(xp int64) (int64, bool) {
	level := LevelForXP(xp)
	if level >= len(LevelThresholds) {
		return 0, false
	}
	return LevelThresholds[level], true
}
