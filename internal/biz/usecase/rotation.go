package usecase

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ayu-dev/starboard/internal/biz/domain"
)

// ErrQueryTooShort rejects weapon queries below the minimum length.
var ErrQueryTooShort = errors.New("query must be at least 3 characters long")

// ErrBrandQueryTooShort rejects brand queries below the minimum length.
var ErrBrandQueryTooShort = errors.New("query must be at least 4 characters long")

// DefaultScrimModes is the mode rotation used by the scrim generator. Turf
// War is deliberately absent; it is reachable only by asking for it.
var DefaultScrimModes = []string{"Rainmaker", "Splat Zones", "Tower Control"}

// scrimModeShortcuts are the abbreviations the mode argument accepts.
var scrimModeShortcuts = map[string]string{
	"rm": "Rainmaker",
	"sz": "Splat Zones",
	"tc": "Tower Control",
	"tw": "Turf War",
}

// RotationUsecase answers stateless map-rotation and weapon-lookup queries.
// The schedule is replaced wholesale by a background refresher; queries never
// block on the platform.
type RotationUsecase struct {
	mu       sync.RWMutex
	schedule []*domain.Rotation

	weapons []domain.Weapon
	brands  []domain.Brand
	stages  []string
	rand    *rand.Rand
}

// NewRotationUsecase creates the usecase over static weapon/brand/stage data.
func NewRotationUsecase(weapons []domain.Weapon, brands []domain.Brand, stages []string, seed int64) *RotationUsecase {
	return &RotationUsecase{
		weapons: weapons,
		brands:  brands,
		stages:  stages,
		rand:    rand.New(rand.NewSource(seed)),
	}
}

// SetSchedule replaces the schedule, dropping entries that already ended.
func (uc *RotationUsecase) SetSchedule(schedule []*domain.Rotation) {
	now := time.Now()
	fresh := make([]*domain.Rotation, 0, len(schedule))
	for _, r := range schedule {
		if !r.Over(now) {
			fresh = append(fresh, r)
		}
	}

	uc.mu.Lock()
	uc.schedule = fresh
	uc.mu.Unlock()
}

// PruneSchedule removes ended entries, keeping the rest. Used when a refresh
// fails and the old data has to carry on.
func (uc *RotationUsecase) PruneSchedule() {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := time.Now()
	kept := uc.schedule[:0]
	for _, r := range uc.schedule {
		if !r.Over(now) {
			kept = append(kept, r)
		}
	}
	uc.schedule = kept
}

// Current returns the live rotation, or nil if the schedule is empty.
func (uc *RotationUsecase) Current() *domain.Rotation {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	now := time.Now()
	for _, r := range uc.schedule {
		if r.Current(now) {
			return r
		}
	}
	return nil
}

// Schedule returns all known rotations that have not ended yet.
func (uc *RotationUsecase) Schedule() []*domain.Rotation {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	now := time.Now()
	var out []*domain.Rotation
	for _, r := range uc.schedule {
		if !r.Over(now) {
			out = append(out, r)
		}
	}
	return out
}

// FindWeapons matches weapons whose name, sub, or special contains the query.
// Queries shorter than 3 characters are rejected.
func (uc *RotationUsecase) FindWeapons(query string) ([]domain.Weapon, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < 3 {
		return nil, ErrQueryTooShort
	}

	var results []domain.Weapon
	for _, w := range uc.weapons {
		if strings.Contains(strings.ToLower(w.Name), query) ||
			strings.Contains(strings.ToLower(w.Sub), query) ||
			strings.Contains(strings.ToLower(w.Special), query) {
			results = append(results, w)
		}
	}
	return results, nil
}

// FindBrands matches brands against a query, first by brand name and then by
// the abilities they buff or nerf. Queries shorter than 4 characters are
// rejected.
func (uc *RotationUsecase) FindBrands(query string) (byName, byAbility []domain.Brand, err error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < 4 {
		return nil, nil, ErrBrandQueryTooShort
	}

	for _, b := range uc.brands {
		if strings.Contains(strings.ToLower(b.Name), query) {
			byName = append(byName, b)
		}
		if b.Neutral() {
			continue
		}
		if strings.Contains(strings.ToLower(b.Buffed), query) ||
			strings.Contains(strings.ToLower(b.Nerfed), query) {
			byAbility = append(byAbility, b)
		}
	}
	return byName, byAbility, nil
}

// ParseScrimMode resolves a user-supplied mode to its canonical name, via
// the two-letter shortcuts or a substring of the full name.
func ParseScrimMode(input string) (string, bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", false
	}
	if mode, ok := scrimModeShortcuts[input]; ok {
		return mode, true
	}
	for _, mode := range append(append([]string(nil), DefaultScrimModes...), "Turf War") {
		if strings.Contains(strings.ToLower(mode), input) {
			return mode, true
		}
	}
	return "", false
}

// Scrims generates a scrim game list: modes rotate round-robin, no duplicate
// games, and a stage never repeats within the last two games. The count is
// capped at the stage pool size.
func (uc *RotationUsecase) Scrims(count int, modes []string) []domain.GameEntry {
	if len(modes) == 0 {
		modes = DefaultScrimModes
	}
	if count <= 0 || len(uc.stages) < 3 {
		return nil
	}
	if count > len(uc.stages) {
		count = len(uc.stages)
	}

	result := make([]domain.GameEntry, 0, count)
	modeIndex := 0
	attempts := 0
	for len(result) < count {
		// With a small stage pool a large request can become unsatisfiable;
		// give up rather than spin.
		attempts++
		if attempts > count*len(uc.stages)*4 {
			break
		}
		entry := domain.GameEntry{
			Stage: uc.stages[uc.rand.Intn(len(uc.stages))],
			Mode:  modes[modeIndex],
		}
		if !validScrimEntry(result, entry) {
			continue
		}
		result = append(result, entry)
		modeIndex = (modeIndex + 1) % len(modes)
	}
	return result
}

// validScrimEntry rejects duplicate games and stages played in the last two
// games.
func validScrimEntry(result []domain.GameEntry, entry domain.GameEntry) bool {
	for _, prev := range result {
		if prev == entry {
			return false
		}
	}
	start := len(result) - 2
	if start < 0 {
		start = 0
	}
	for _, prev := range result[start:] {
		if prev.Stage == entry.Stage {
			return false
		}
	}
	return true
}
