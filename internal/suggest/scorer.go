// Package suggest ranks catalog exercises by how well they fit the current
// session composition. The output is advisory: it pre-fills pickers so data
// entry is fast, but never gates what the user may add.
package suggest

import (
	"sort"
	"strings"

	"github.com/claude/liftlog/internal/models"
)

// Scoring weights. The anchor bonus dominates so an empty session always
// leads with a compound movement; the rest shape ordering among peers.
const (
	anchorCompoundBonus  = 50.0
	complementBonus      = 10.0
	alternateRegionBonus = 8.0
	commonExerciseBonus  = 3.0
	repeatGroupPenalty   = 5.0
)

// Name fragments that mark multi-joint compound movements.
var compoundPatterns = []string{
	"squat", "deadlift", "bench", "press", "row",
	"pull-up", "pullup", "chin-up", "chinup", "lunge",
	"clean", "snatch", "thrust", "dip",
}

// Complementary muscle-group pairs, both directions.
var complementaryGroups = map[string]string{
	"chest":      "back",
	"back":       "chest",
	"biceps":     "triceps",
	"triceps":    "biceps",
	"quadriceps": "hamstrings",
	"hamstrings": "quadriceps",
	"abs":        "lower back",
	"lower back": "abs",
	"shoulders":  "lats",
	"lats":       "shoulders",
}

var lowerBodyGroups = map[string]bool{
	"quadriceps": true,
	"hamstrings": true,
	"glutes":     true,
	"calves":     true,
}

// Staples that deserve a nudge even when nothing else differentiates them.
var commonExercises = map[string]bool{
	"barbell back squat":  true,
	"barbell bench press": true,
	"deadlift":            true,
	"overhead press":      true,
	"barbell row":         true,
	"pull-up":             true,
	"romanian deadlift":   true,
	"lat pulldown":        true,
}

// Candidate is a scored catalog exercise. Not persisted anywhere.
type Candidate struct {
	Exercise models.Exercise `json:"exercise"`
	Score    float64         `json:"score"`
}

// Score rates one candidate against the current session composition.
func Score(candidate models.Exercise, current []models.SessionExercise) float64 {
	score := 0.0
	name := strings.ToLower(candidate.Name)

	if len(current) == 0 {
		if isCompound(name) {
			score += anchorCompoundBonus
		}
	} else {
		targeted := make(map[string]bool)
		for _, se := range current {
			for _, g := range se.Exercise.MuscleGroups {
				targeted[strings.ToLower(g)] = true
			}
		}
		for _, g := range candidate.MuscleGroups {
			g = strings.ToLower(g)
			if comp, ok := complementaryGroups[g]; ok && targeted[comp] {
				score += complementBonus
			}
			if targeted[g] {
				score -= repeatGroupPenalty
			}
		}

		last := current[len(current)-1]
		if isLowerBody(last.Exercise) != isLowerBody(candidate) {
			score += alternateRegionBonus
		}
	}

	if commonExercises[name] {
		score += commonExerciseBonus
	}

	return score
}

// Rank scores every catalog exercise not already in the session and returns
// the top k by descending score. The sort is stable, so ties keep catalog
// order and the output is deterministic.
func Rank(catalog []models.Exercise, current []models.SessionExercise, k int) []Candidate {
	present := make(map[string]bool, len(current))
	for _, se := range current {
		present[se.Exercise.ID.String()] = true
	}

	candidates := make([]Candidate, 0, len(catalog))
	for _, ex := range catalog {
		if present[ex.ID.String()] {
			continue
		}
		candidates = append(candidates, Candidate{Exercise: ex, Score: Score(ex, current)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

func isCompound(lowerName string) bool {
	for _, p := range compoundPatterns {
		if strings.Contains(lowerName, p) {
			return true
		}
	}
	return false
}

func isLowerBody(ex models.Exercise) bool {
	for _, g := range ex.MuscleGroups {
		if lowerBodyGroups[strings.ToLower(g)] {
			return true
		}
	}
	return false
}
