package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ayu-dev/starboard/internal/biz/domain"
	"github.com/ayu-dev/starboard/internal/biz/repo"
	"github.com/ayu-dev/starboard/internal/biz/usecase"
)

// scheduleRefreshInterval matches the upstream schedule granularity.
const scheduleRefreshInterval = 2 * time.Minute

// defaultWikiURL is the Inkipedia search endpoint; a matching article
// redirects away from the search path.
const defaultWikiURL = "https://splatoonwiki.org/wiki/Special:Search/"

// RotationService answers the map-rotation and weapon-lookup commands and
// keeps the schedule fresh with a background refresh loop.
type RotationService struct {
	rotationUC  *usecase.RotationUsecase
	platform    repo.PlatformRepo
	scheduleURL string
	wikiURL     string
	http        *http.Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRotationService creates a new rotation service. scheduleURL may be
// empty, in which case no refresh loop runs and map queries report no data.
func NewRotationService(rotationUC *usecase.RotationUsecase, platform repo.PlatformRepo, scheduleURL string) *RotationService {
	return &RotationService{
		rotationUC:  rotationUC,
		platform:    platform,
		scheduleURL: scheduleURL,
		wikiURL:     defaultWikiURL,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// Start starts the schedule refresh loop.
func (s *RotationService) Start(ctx context.Context) {
	if s.scheduleURL == "" {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.refreshLoop()

	fmt.Printf("[Rotation] Schedule refresh started (every %v)\n", scheduleRefreshInterval)
}

// Stop stops the refresh loop.
func (s *RotationService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// refreshLoop refreshes the schedule until canceled.
func (s *RotationService) refreshLoop() {
	defer s.wg.Done()

	s.refresh()

	ticker := time.NewTicker(scheduleRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

// refresh fetches the schedule. On failure the old data carries on, minus
// entries that already ended.
func (s *RotationService) refresh() {
	schedule, err := s.fetchSchedule(s.ctx)
	if err != nil {
		fmt.Printf("[Rotation] Schedule fetch failed: %v\n", err)
		s.rotationUC.PruneSchedule()
		return
	}
	s.rotationUC.SetSchedule(schedule)
}

// fetchSchedule downloads and decodes the rotation schedule.
func (s *RotationService) fetchSchedule(ctx context.Context) ([]*domain.Rotation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.scheduleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schedule endpoint returned %d", resp.StatusCode)
	}

	var schedule []*domain.Rotation
	if err := json.NewDecoder(resp.Body).Decode(&schedule); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	return schedule, nil
}

// Maps handles the maps command: the current rotation.
func (s *RotationService) Maps(ctx context.Context, channelID string) {
	current := s.rotationUC.Current()
	if current == nil {
		s.reply(ctx, channelID, "No map data found. Try again later.")
		return
	}
	s.reply(ctx, channelID, current.String())
}

// Schedule handles the schedule command: all upcoming rotations.
func (s *RotationService) Schedule(ctx context.Context, channelID string) {
	schedule := s.rotationUC.Schedule()
	if len(schedule) == 0 {
		s.reply(ctx, channelID, "No map data found. Try again later.")
		return
	}

	lines := make([]string, 0, len(schedule))
	for _, r := range schedule {
		lines = append(lines, r.String())
	}
	s.reply(ctx, channelID, strings.Join(lines, "\n"))
}

// Weapon handles the weapon command: lookup by name, sub, or special.
func (s *RotationService) Weapon(ctx context.Context, channelID, query string) {
	results, err := s.rotationUC.FindWeapons(query)
	if err != nil {
		s.reply(ctx, channelID, "The query must be at least 3 characters long.")
		return
	}
	if len(results) == 0 {
		s.reply(ctx, channelID, "No results found.")
		return
	}

	lines := make([]string, 0, len(results)+1)
	lines = append(lines, fmt.Sprintf("Found %d weapon(s):", len(results)))
	for _, w := range results {
		lines = append(lines, w.String())
	}
	s.reply(ctx, channelID, strings.Join(lines, "\n"))
}

// Brand handles the brand command: lookup by brand name or influenced
// ability.
func (s *RotationService) Brand(ctx context.Context, channelID, query string) {
	byName, byAbility, err := s.rotationUC.FindBrands(query)
	if err != nil {
		s.reply(ctx, channelID, "The query must be at least 4 characters long.")
		return
	}

	var lines []string
	if len(byName) > 0 {
		lines = append(lines, "Found the following brands:")
		for _, b := range byName {
			lines = append(lines, b.String())
		}
		lines = append(lines, "")
	}
	if len(byAbility) > 0 {
		lines = append(lines, "Found the following relevant abilities:")
		for _, b := range byAbility {
			lines = append(lines, b.String())
		}
	}

	if len(lines) == 0 {
		s.reply(ctx, channelID, "Your query returned nothing.")
		return
	}
	s.reply(ctx, channelID, strings.Join(lines, "\n"))
}

// Wiki handles the splatwiki command: resolve a title against the wiki's
// search endpoint. A hit redirects to the article; staying on the search
// path means nothing matched.
func (s *RotationService) Wiki(ctx context.Context, channelID, title string) {
	if title == "" {
		s.reply(ctx, channelID, "A page title is required.")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.wikiURL+url.PathEscape(title), nil)
	if err != nil {
		s.reply(ctx, channelID, "That does not look like a valid page title.")
		return
	}

	resp, err := s.http.Do(req)
	if err != nil {
		s.reply(ctx, channelID, "It seems that Inkipedia is taking too long to respond. Try again later.")
		return
	}
	defer resp.Body.Close()

	final := resp.Request.URL
	switch {
	case strings.Contains(final.Path, "Special:Search"):
		s.reply(ctx, channelID, "Could not find your page. Try a search:\n"+final.String())
	case resp.StatusCode == http.StatusOK:
		s.reply(ctx, channelID, final.String())
	case resp.StatusCode == http.StatusBadGateway:
		s.reply(ctx, channelID, "It seems that Inkipedia is taking too long to respond. Try again later.")
	default:
		s.reply(ctx, channelID, fmt.Sprintf("An error has occurred of status code %d happened.", resp.StatusCode))
	}
}

// Scrim handles the scrim command: generate a scrim game list. The optional
// mode argument pins every game to one mode instead of rotating.
func (s *RotationService) Scrim(ctx context.Context, channelID, args string) {
	count := 5
	var modeArg string
	if args != "" {
		fields := strings.Fields(args)
		if parsed, err := strconv.Atoi(fields[0]); err == nil {
			if parsed < 3 || parsed > 25 {
				s.reply(ctx, channelID, "Game count must be a number between 3 and 25.")
				return
			}
			count = parsed
			modeArg = strings.Join(fields[1:], " ")
		} else {
			modeArg = args
		}
	}

	var modes []string
	if modeArg != "" {
		mode, ok := usecase.ParseScrimMode(modeArg)
		if !ok {
			s.reply(ctx, channelID, "Could not figure out what mode you meant.")
			return
		}
		modes = []string{mode}
	}

	games := s.rotationUC.Scrims(count, modes)
	if len(games) == 0 {
		s.reply(ctx, channelID, "No stage data loaded. Try again later.")
		return
	}

	lines := make([]string, 0, len(games)+1)
	if len(modes) == 1 {
		lines = append(lines, fmt.Sprintf("The following games will be played in %s.", modes[0]))
		for i, g := range games {
			lines = append(lines, fmt.Sprintf("Game %d: %s", i+1, g.Stage))
		}
	} else {
		lines = append(lines, "The following games will be played:")
		for i, g := range games {
			lines = append(lines, fmt.Sprintf("Game %d: %s", i+1, g))
		}
	}
	s.reply(ctx, channelID, strings.Join(lines, "\n"))
}

func (s *RotationService) reply(ctx context.Context, channelID, text string) {
	if _, err := s.platform.SendMessage(ctx, channelID, text); err != nil {
		fmt.Printf("[Rotation] Failed to send reply: %v\n", err)
	}
}
