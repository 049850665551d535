package data

import (
	"github.com/ayu-dev/starboard/internal/biz/repo"
	"github.com/ayu-dev/starboard/internal/infra/discord"
)

// Repositories contains all repositories
type Repositories struct {
	Board    repo.BoardRepo
	Platform repo.PlatformRepo
}

// NewRepositories creates all repositories
func NewRepositories(discordClient *discord.Client, boardDBPath string) (*Repositories, error) {
	boardRepo, err := NewBoardRepo(boardDBPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Board:    boardRepo,
		Platform: NewDiscordRepo(discordClient),
	}, nil
}
