package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayu-dev/starboard/internal/biz/domain"
	"github.com/ayu-dev/starboard/internal/biz/repo"
)

// Mock implementations

type mockBoardRepo struct {
	mu      sync.Mutex
	boards  map[string]*domain.BoardConfig
	puts    int
	removes int
}

func newMockBoardRepo() *mockBoardRepo {
	return &mockBoardRepo{boards: make(map[string]*domain.BoardConfig)}
}

func (m *mockBoardRepo) Get(ctx context.Context, guildID string) (*domain.BoardConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.boards[guildID]; ok {
		return cfg, nil
	}
	return domain.NewBoardConfig(), nil
}

func (m *mockBoardRepo) Put(ctx context.Context, guildID string, cfg *domain.BoardConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[guildID] = cfg
	m.puts++
	return nil
}

func (m *mockBoardRepo) Remove(ctx context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boards, guildID)
	m.removes++
	return nil
}

func (m *mockBoardRepo) Close() error { return nil }

type sentMessage struct {
	ChannelID string
	Text      string
}

type editedMessage struct {
	ChannelID string
	MessageID string
	Text      string
}

type mockPlatform struct {
	mu           sync.Mutex
	messages     map[string]*domain.Message
	missingEdits map[string]bool // message IDs whose edit reports NotFound
	channels     map[string]bool
	createErr    error

	fetches int
	sends   []sentMessage
	edits   []editedMessage
	deletes []string

	nextID int
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{
		messages:     make(map[string]*domain.Message),
		missingEdits: make(map[string]bool),
		channels:     make(map[string]bool),
	}
}

func (m *mockPlatform) addMessage(msg *domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ID] = msg
}

func (m *mockPlatform) FetchMessage(ctx context.Context, channelID, messageID string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	msg, ok := m.messages[messageID]
	if !ok || msg.ChannelID != channelID {
		return nil, domain.ErrMessageNotFound
	}
	return msg, nil
}

func (m *mockPlatform) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("board-msg-%d", m.nextID)
	m.sends = append(m.sends, sentMessage{ChannelID: channelID, Text: text})
	return id, nil
}

func (m *mockPlatform) EditMessage(ctx context.Context, channelID, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missingEdits[messageID] {
		return domain.ErrMessageNotFound
	}
	m.edits = append(m.edits, editedMessage{ChannelID: channelID, MessageID: messageID, Text: text})
	return nil
}

func (m *mockPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, messageID)
	return nil
}

func (m *mockPlatform) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[channelID], nil
}

func (m *mockPlatform) CreateChannel(ctx context.Context, guildID, name string, overwrites []repo.PermissionOverwrite) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("channel-%d", m.nextID)
	m.channels[id] = true
	return id, nil
}

// Fixture

const (
	testGuild   = "guild-1"
	testChannel = "source-chan"
	boardChan   = "board-chan"
)

func newStarFixture(t *testing.T) (*StarUsecase, *mockPlatform, *mockBoardRepo) {
	t.Helper()

	boardRepo := newMockBoardRepo()
	platform := newMockPlatform()
	platform.channels[boardChan] = true

	cfg := domain.NewBoardConfig()
	cfg.ChannelID = boardChan
	boardRepo.boards[testGuild] = cfg

	resolver, err := NewMessageResolver(platform, 16)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	uc := NewStarUsecase(boardRepo, platform, resolver, DefaultMaxStarAge, "bot-user")
	return uc, platform, boardRepo
}

func freshMessage(id, author string) *domain.Message {
	return &domain.Message{
		ID:         id,
		ChannelID:  testChannel,
		AuthorID:   author,
		AuthorName: "author-" + author,
		Content:    "a noteworthy message",
		Timestamp:  time.Now().Add(-time.Hour),
	}
}

// Tests

func TestStar_FirstStarCreatesMirror(t *testing.T) {
	uc, platform, boardRepo := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	result, err := uc.Star(context.Background(), testGuild, testChannel, "msg-1", "bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.Created {
		t.Error("Expected a new mirror to be created")
	}
	if result.Stars != 1 {
		t.Errorf("Expected 1 star, got %d", result.Stars)
	}
	if len(platform.sends) != 1 || platform.sends[0].ChannelID != boardChan {
		t.Fatalf("Expected one send to the board channel, got %+v", platform.sends)
	}

	entry := boardRepo.boards[testGuild].Entry("msg-1")
	if entry == nil {
		t.Fatal("Expected entry to be persisted")
	}
	if entry.BoardMessageID != result.BoardMessageID {
		t.Errorf("Expected persisted mirror ID %q, got %q", result.BoardMessageID, entry.BoardMessageID)
	}
}

func TestStar_SecondStarEditsMirror(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob"); err != nil {
		t.Fatalf("Unexpected error on first star: %v", err)
	}

	result, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "carol")
	if err != nil {
		t.Fatalf("Unexpected error on second star: %v", err)
	}

	if result.Created {
		t.Error("Expected mirror edit, not creation")
	}
	if result.Stars != 2 {
		t.Errorf("Expected 2 stars, got %d", result.Stars)
	}
	if len(platform.sends) != 1 {
		t.Errorf("Expected exactly one mirror creation, got %d", len(platform.sends))
	}
	if len(platform.edits) != 1 {
		t.Fatalf("Expected one mirror edit, got %d", len(platform.edits))
	}
	if !strings.Contains(platform.edits[0].Text, "**2**") {
		t.Errorf("Expected updated count in mirror text, got %q", platform.edits[0].Text)
	}
}

func TestStar_RepeatStarAlwaysRejected(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	callsBefore := len(platform.sends) + len(platform.edits)
	for i := 0; i < 5; i++ {
		_, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob")
		if !errors.Is(err, domain.ErrAlreadyStarred) {
			t.Fatalf("Attempt %d: expected ErrAlreadyStarred, got %v", i, err)
		}
	}
	if got := len(platform.sends) + len(platform.edits); got != callsBefore {
		t.Errorf("Expected no platform calls on rejected stars, got %d extra", got-callsBefore)
	}
}

func TestStar_SelfStarRejected(t *testing.T) {
	uc, platform, boardRepo := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	_, err := uc.Star(context.Background(), testGuild, testChannel, "msg-1", "alice")
	if !errors.Is(err, domain.ErrOwnMessage) {
		t.Fatalf("Expected ErrOwnMessage, got %v", err)
	}
	if boardRepo.boards[testGuild].Entry("msg-1") != nil {
		t.Error("Expected no entry for rejected star")
	}
}

func TestStar_TooOldRejected(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	msg := freshMessage("msg-1", "alice")
	msg.Timestamp = time.Now().Add(-8 * 24 * time.Hour)
	platform.addMessage(msg)

	_, err := uc.Star(context.Background(), testGuild, testChannel, "msg-1", "bob")
	if !errors.Is(err, domain.ErrTooOld) {
		t.Fatalf("Expected ErrTooOld, got %v", err)
	}
	if len(platform.sends) != 0 {
		t.Error("Expected no mirror for stale message")
	}
}

func TestStar_BoardChannelRejected(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	msg := freshMessage("msg-1", "alice")
	msg.ChannelID = boardChan
	platform.addMessage(msg)

	_, err := uc.Star(context.Background(), testGuild, boardChan, "msg-1", "bob")
	if !errors.Is(err, domain.ErrBoardChannel) {
		t.Fatalf("Expected ErrBoardChannel, got %v", err)
	}
}

func TestStar_UnconfiguredGuildRejected(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	_, err := uc.Star(context.Background(), "other-guild", testChannel, "msg-1", "bob")
	if !errors.Is(err, domain.ErrBoardNotConfigured) {
		t.Fatalf("Expected ErrBoardNotConfigured, got %v", err)
	}
}

func TestStar_MissingMessageRejected(t *testing.T) {
	uc, _, _ := newStarFixture(t)

	_, err := uc.Star(context.Background(), testGuild, testChannel, "no-such-msg", "bob")
	if !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("Expected ErrMessageNotFound, got %v", err)
	}
}

func TestStar_TooLongRejectedBeforeStateChange(t *testing.T) {
	uc, platform, boardRepo := newStarFixture(t)
	msg := freshMessage("msg-1", "alice")
	msg.Content = strings.Repeat("a", MaxBoardMessageLen+1)
	platform.addMessage(msg)

	_, err := uc.Star(context.Background(), testGuild, testChannel, "msg-1", "bob")
	if !errors.Is(err, domain.ErrTooLong) {
		t.Fatalf("Expected ErrTooLong, got %v", err)
	}
	if len(platform.sends) != 0 {
		t.Error("Expected no platform call for too-long render")
	}
	if boardRepo.boards[testGuild].Entry("msg-1") != nil {
		t.Error("Expected no entry persisted for too-long render")
	}
}

func TestStar_DriftRecovery(t *testing.T) {
	uc, platform, boardRepo := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	first, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "carol"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Someone deletes the mirror out from under us.
	platform.mu.Lock()
	platform.missingEdits[first.BoardMessageID] = true
	platform.mu.Unlock()

	result, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "dave")
	if err != nil {
		t.Fatalf("Expected drift recovery to succeed, got %v", err)
	}

	if !result.Created {
		t.Error("Expected recovery to post a fresh mirror")
	}
	if result.Stars != 1 {
		t.Errorf("Expected fresh lifecycle with 1 star, got %d", result.Stars)
	}
	if result.BoardMessageID == first.BoardMessageID {
		t.Error("Expected a new mirror message ID")
	}

	entry := boardRepo.boards[testGuild].Entry("msg-1")
	if entry == nil {
		t.Fatal("Expected recovered entry to be persisted")
	}
	if entry.Stars() != 1 || !entry.HasStarrer("dave") {
		t.Errorf("Expected only dave on the fresh entry, got %+v", entry.Starrers)
	}
}

func TestHandleMessageDelete_PurgesMirrorEntry(t *testing.T) {
	uc, platform, boardRepo := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	result, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ev := &domain.GatewayEvent{
		Type:      domain.EventMessageDelete,
		GuildID:   testGuild,
		ChannelID: boardChan,
		MessageID: result.BoardMessageID,
	}
	if err := uc.HandleMessageDelete(ctx, ev); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if boardRepo.boards[testGuild].Entry("msg-1") != nil {
		t.Fatal("Expected entry to be purged")
	}

	// Re-starring starts a brand-new lifecycle with count 1, not 2.
	again, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "carol")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !again.Created || again.Stars != 1 {
		t.Errorf("Expected fresh Starred(_, 1), got created=%v stars=%d", again.Created, again.Stars)
	}
}

func TestHandleMessageDelete_IgnoresOtherChannels(t *testing.T) {
	uc, platform, boardRepo := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Deleting the original leaves the mirror as an archival record.
	ev := &domain.GatewayEvent{
		Type:      domain.EventMessageDelete,
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: "msg-1",
	}
	if err := uc.HandleMessageDelete(ctx, ev); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if boardRepo.boards[testGuild].Entry("msg-1") == nil {
		t.Error("Expected entry to survive a source-channel delete")
	}
}

func TestHandleMessageUpdate_PropagatesEdit(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	for _, user := range []string{"bob", "carol", "dave"} {
		if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", user); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	// The original gets edited on the platform.
	edited := freshMessage("msg-1", "alice")
	edited.Content = "now even better"
	platform.addMessage(edited)

	editsBefore := len(platform.edits)
	ev := &domain.GatewayEvent{
		Type:       domain.EventMessageUpdate,
		GuildID:    testGuild,
		ChannelID:  testChannel,
		MessageID:  "msg-1",
		HasContent: true,
	}
	if err := uc.HandleMessageUpdate(ctx, ev); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(platform.edits) != editsBefore+1 {
		t.Fatalf("Expected one propagation edit, got %d", len(platform.edits)-editsBefore)
	}
	last := platform.edits[len(platform.edits)-1]
	if !strings.Contains(last.Text, "now even better") {
		t.Errorf("Expected new content in mirror, got %q", last.Text)
	}
	if !strings.Contains(last.Text, "**3**") {
		t.Errorf("Expected count unchanged at 3, got %q", last.Text)
	}
}

func TestHandleMessageUpdate_FullPayloadSkipsFetch(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	original := freshMessage("msg-1", "alice")
	platform.addMessage(original)

	ctx := context.Background()
	if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fetchesBefore := platform.fetches

	// A full payload carries everything the render needs.
	ev := &domain.GatewayEvent{
		Type:       domain.EventMessageUpdate,
		GuildID:    testGuild,
		ChannelID:  testChannel,
		MessageID:  "msg-1",
		AuthorID:   "alice",
		AuthorName: "author-alice",
		Content:    "edited in place",
		Timestamp:  original.Timestamp,
		HasContent: true,
	}
	if err := uc.HandleMessageUpdate(ctx, ev); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if platform.fetches != fetchesBefore {
		t.Errorf("Expected the payload to spare the fetch, got %d extra", platform.fetches-fetchesBefore)
	}
	if len(platform.edits) != 1 {
		t.Fatalf("Expected one propagation edit, got %d", len(platform.edits))
	}
	if !strings.Contains(platform.edits[0].Text, "edited in place") {
		t.Errorf("Expected payload content in mirror, got %q", platform.edits[0].Text)
	}
}

func TestHandleMessageUpdate_TooLongKeepsPreviousText(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	edited := freshMessage("msg-1", "alice")
	edited.Content = strings.Repeat("a", MaxBoardMessageLen+1)
	platform.addMessage(edited)

	editsBefore := len(platform.edits)
	ev := &domain.GatewayEvent{
		Type:       domain.EventMessageUpdate,
		GuildID:    testGuild,
		ChannelID:  testChannel,
		MessageID:  "msg-1",
		HasContent: true,
	}
	if err := uc.HandleMessageUpdate(ctx, ev); err != nil {
		t.Fatalf("Expected best-effort drop, got %v", err)
	}
	if len(platform.edits) != editsBefore {
		t.Error("Expected mirror text to stay unchanged for a too-long edit")
	}
}

func TestHandleMessageUpdate_EmbedOnlySkipped(t *testing.T) {
	uc, platform, _ := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fetchesBefore := platform.fetches

	ev := &domain.GatewayEvent{
		Type:      domain.EventMessageUpdate,
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: "msg-1",
	}
	if err := uc.HandleMessageUpdate(ctx, ev); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if platform.fetches != fetchesBefore {
		t.Error("Expected no fetch for an embed-only update")
	}
}

func TestHandleMessageUpdate_UntrackedIgnored(t *testing.T) {
	uc, platform, _ := newStarFixture(t)

	ev := &domain.GatewayEvent{
		Type:       domain.EventMessageUpdate,
		GuildID:    testGuild,
		ChannelID:  testChannel,
		MessageID:  "never-starred",
		HasContent: true,
	}
	if err := uc.HandleMessageUpdate(context.Background(), ev); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(platform.edits) != 0 {
		t.Error("Expected no edit for an untracked message")
	}
}

func TestStar_ConcurrentStarsAllRecorded(t *testing.T) {
	uc, platform, boardRepo := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	const starrers = 10
	var wg sync.WaitGroup
	errs := make([]error, starrers)
	for i := 0; i < starrers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Star(context.Background(), testGuild, testChannel, "msg-1", fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Starrer %d failed: %v", i, err)
		}
	}

	entry := boardRepo.boards[testGuild].Entry("msg-1")
	if entry == nil {
		t.Fatal("Expected entry to exist")
	}
	if entry.Stars() != starrers {
		t.Errorf("Expected %d stars after concurrent starring, got %d", starrers, entry.Stars())
	}
	if len(platform.sends) != 1 {
		t.Errorf("Expected a single mirror creation, got %d", len(platform.sends))
	}
}

func TestSetupBoard(t *testing.T) {
	boardRepo := newMockBoardRepo()
	platform := newMockPlatform()
	resolver, err := NewMessageResolver(platform, 16)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	uc := NewStarUsecase(boardRepo, platform, resolver, DefaultMaxStarAge, "bot-user")

	ctx := context.Background()
	channelID, err := uc.SetupBoard(ctx, testGuild, "starboard")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if channelID == "" {
		t.Fatal("Expected a channel ID")
	}

	cfg := boardRepo.boards[testGuild]
	if cfg == nil || cfg.ChannelID != channelID {
		t.Fatalf("Expected persisted channel %q, got %+v", channelID, cfg)
	}

	// Second setup against a live channel is rejected.
	_, err = uc.SetupBoard(ctx, testGuild, "starboard")
	if !errors.Is(err, domain.ErrBoardExists) {
		t.Fatalf("Expected ErrBoardExists, got %v", err)
	}
}

func TestSetupBoard_DeadChannelResetsData(t *testing.T) {
	uc, platform, boardRepo := newStarFixture(t)
	platform.addMessage(freshMessage("msg-1", "alice"))

	ctx := context.Background()
	if _, err := uc.Star(ctx, testGuild, testChannel, "msg-1", "bob"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The board channel gets deleted externally.
	platform.mu.Lock()
	platform.channels[boardChan] = false
	platform.mu.Unlock()

	channelID, err := uc.SetupBoard(ctx, testGuild, "starboard")
	if err != nil {
		t.Fatalf("Expected reconfiguration to succeed, got %v", err)
	}
	if channelID == boardChan {
		t.Error("Expected a new channel")
	}

	cfg := boardRepo.boards[testGuild]
	if cfg.ChannelID != channelID {
		t.Errorf("Expected new channel persisted, got %q", cfg.ChannelID)
	}
	if len(cfg.Entries) != 0 {
		t.Errorf("Expected old star data cleared, got %d entries", len(cfg.Entries))
	}
	if boardRepo.removes != 1 {
		t.Errorf("Expected the stale record to be removed, got %d removals", boardRepo.removes)
	}
}

func TestSetupBoard_CreateFailures(t *testing.T) {
	boardRepo := newMockBoardRepo()
	platform := newMockPlatform()
	resolver, _ := NewMessageResolver(platform, 16)
	uc := NewStarUsecase(boardRepo, platform, resolver, DefaultMaxStarAge, "")

	platform.createErr = domain.ErrForbidden
	if _, err := uc.SetupBoard(context.Background(), testGuild, "starboard"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}

	platform.createErr = domain.ErrBadChannelName
	if _, err := uc.SetupBoard(context.Background(), testGuild, "bad name"); !errors.Is(err, domain.ErrBadChannelName) {
		t.Fatalf("Expected ErrBadChannelName, got %v", err)
	}

	if len(boardRepo.boards) != 0 {
		t.Error("Expected no config persisted after failed creation")
	}
}
