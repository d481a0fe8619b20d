package bracket

import (
	"math/rand"
	"sort"
)

// SeedEntries orders the teams for a stage by its seeding method and numbers them 1..n.
func SeedEntries(stage *Stage, teams []Entry) ([]Entry, error) {
	if len(teams) < 2 {
		return nil, Errorf(KindInsufficientTeams, "need at least 2 teams, got %d", len(teams))
	}

	entries := make([]Entry, len(teams))
	copy(entries, teams)

	seen := make(map[string]bool, len(entries))
	for i := range entries {
		key := entries[i].TeamID.String()
		if seen[key] {
			return nil, Errorf(KindInvalidSeeding, "team %s registered twice", key)
		}
		seen[key] = true
		entries[i].StageID = stage.ID
	}

	switch stage.SeedingMethod {
	case SeedByRating:
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.TeamID.String() < b.TeamID.String()
		})
	case SeedManual:
		if err := orderBySeed(entries); err != nil {
			return nil, err
		}
	case SeedRandom:
		rng := rand.New(rand.NewSource(stage.RandomSeed))
		rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
	default:
		return nil, Errorf(KindInvalidConfig, "unknown seeding method %q", stage.SeedingMethod)
	}

	for i := range entries {
		entries[i].Seed = i + 1
	}
	return entries, nil
}

// Caller order is the seed order unless every entry carries an explicit seed,
// in which case the seeds must be a permutation of 1..n.
func orderBySeed(entries []Entry) error {
	explicit := 0
	for _, e := range entries {
		if e.Seed != 0 {
			explicit++
		}
	}
	if explicit == 0 {
		return nil
	}
	if explicit != len(entries) {
		return Errorf(KindInvalidSeeding, "%d of %d teams are missing a seed", len(entries)-explicit, len(entries))
	}

	used := make([]bool, len(entries)+1)
	for _, e := range entries {
		if e.Seed < 1 || e.Seed > len(entries) {
			return Errorf(KindInvalidSeeding, "seed %d out of range 1..%d", e.Seed, len(entries))
		}
		if used[e.Seed] {
			return Errorf(KindInvalidSeeding, "seed %d assigned twice", e.Seed)
		}
		used[e.Seed] = true
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seed < entries[j].Seed })
	return nil
}
