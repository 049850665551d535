package data

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ayu-dev/starboard/internal/biz/domain"
)

// RotationData is the static map/weapon/brand dataset loaded at startup.
type RotationData struct {
	Stages  []string        `json:"maps"`
	Weapons []domain.Weapon `json:"weapons"`
	Brands  []domain.Brand  `json:"brands"`
}

// LoadRotationData reads the stage and weapon dataset from a JSON file.
func LoadRotationData(path string) (*RotationData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rotation data: %w", err)
	}

	var data RotationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode rotation data: %w", err)
	}
	return &data, nil
}
