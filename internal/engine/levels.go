package engine

import "sort"

// LevelProfile describes the target band of one assessment level. Profiles
// form a static catalog built once at init and never mutated.
type LevelProfile struct {
	ID                      string `json:"id"`
	MinDifficulty           int    `json:"min_difficulty"`
	MaxDifficulty           int    `json:"max_difficulty"`
	TargetTimeSec           int    `json:"target_time_sec"`            // expected seconds per question
	RecommendedDailyMinutes int    `json:"recommended_daily_minutes"` // baseline study budget
}

var levelCatalog = map[string]LevelProfile{
	"foundation": {ID: "foundation", MinDifficulty: 1, MaxDifficulty: 2, TargetTimeSec: 60, RecommendedDailyMinutes: 30},
	"core":       {ID: "core", MinDifficulty: 2, MaxDifficulty: 3, TargetTimeSec: 75, RecommendedDailyMinutes: 45},
	"advanced":   {ID: "advanced", MinDifficulty: 3, MaxDifficulty: 4, TargetTimeSec: 90, RecommendedDailyMinutes: 60},
	"boards":     {ID: "boards", MinDifficulty: 4, MaxDifficulty: 5, TargetTimeSec: 100, RecommendedDailyMinutes: 90},
}

// DefaultLevel is used when a caller supplies an unknown level id.
const DefaultLevel = "core"

// LevelByID looks up a level profile. Unknown ids resolve to DefaultLevel so
// downstream scoring always has a usable band.
func LevelByID(id string) LevelProfile {
	if p, ok := levelCatalog[id]; ok {
		return p
	}
	return levelCatalog[DefaultLevel]
}

// Levels returns the catalog sorted by ascending difficulty band.
func Levels() []LevelProfile {
	out := make([]LevelProfile, 0, len(levelCatalog))
	for _, p := range levelCatalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinDifficulty < out[j].MinDifficulty })
	return out
}
