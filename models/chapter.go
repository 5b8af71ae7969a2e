package models

// Chapter is a static curriculum entry; it is not persisted.
type Chapter struct {
	ID       string `json:"id"` // zero-padded, "01".."30"
	Part     int    `json:"part"`
	Title    string `json:"title"`
	XPReward int64  `json:"xp_reward"`
}

// Part groups chapters; completing all of them earns the part badge.
type Part struct {
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}
