package domain

import (
	"fmt"
	"time"
)

// Rotation is one entry in the map schedule.
type Rotation struct {
	Mode   string    `json:"mode"`
	StageA string    `json:"stage_a"`
	StageB string    `json:"stage_b"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Over reports whether the rotation has already ended.
func (r *Rotation) Over(now time.Time) bool {
	return !r.End.After(now)
}

// Current reports whether the rotation is live.
func (r *Rotation) Current(now time.Time) bool {
	return !r.Start.After(now) && r.End.After(now)
}

func (r *Rotation) String() string {
	return fmt.Sprintf("%s: %s and %s", r.Mode, r.StageA, r.StageB)
}

// Weapon is one entry in the weapon lookup data.
type Weapon struct {
	Name    string `json:"name"`
	Sub     string `json:"sub"`
	Special string `json:"special"`
}

func (w *Weapon) String() string {
	return fmt.Sprintf("**%s**\nSub: %s, Special: %s", w.Name, w.Sub, w.Special)
}

// Brand is one entry in the brand lookup data. Buffed and Nerfed name the
// abilities whose roll probabilities the brand skews; both empty means the
// brand is neutral.
type Brand struct {
	Name   string `json:"name"`
	Buffed string `json:"buffed"`
	Nerfed string `json:"nerfed"`
}

// Neutral reports whether the brand skews no ability probabilities.
func (b *Brand) Neutral() bool {
	return b.Buffed == "" || b.Nerfed == ""
}

func (b *Brand) String() string {
	if b.Neutral() {
		return fmt.Sprintf("The brand %q is neutral.", b.Name)
	}
	return fmt.Sprintf("The brand %q has buffed %s and nerfed %s probabilities.", b.Name, b.Buffed, b.Nerfed)
}

// GameEntry is one scrim game: a stage paired with a mode.
type GameEntry struct {
	Stage string
	Mode  string
}

func (g GameEntry) String() string {
	return fmt.Sprintf("%s on %s", g.Mode, g.Stage)
}
