package domain

// StarEntry is the ledger record for one starred message: the mirror posted
// to the board channel and the users who starred the original.
type StarEntry struct {
	BoardMessageID string   `json:"board_message_id"`
	Starrers       []string `json:"starrers"`
}

// Stars returns the number of distinct starrers.
func (e *StarEntry) Stars() int {
	return len(e.Starrers)
}

// HasStarrer reports whether the user already starred this message.
func (e *StarEntry) HasStarrer(userID string) bool {
	for _, id := range e.Starrers {
		if id == userID {
			return true
		}
	}
	return false
}

// BoardConfig is a guild's board state: the board channel and the star
// ledger, keyed by original message ID.
type BoardConfig struct {
	ChannelID string                `json:"channel_id"`
	Entries   map[string]*StarEntry `json:"entries"`
}

// NewBoardConfig creates an empty, unconfigured board.
func NewBoardConfig() *BoardConfig {
	return &BoardConfig{Entries: make(map[string]*StarEntry)}
}

// Configured reports whether a board channel has been recorded.
func (c *BoardConfig) Configured() bool {
	return c.ChannelID != ""
}

// Entry returns the ledger entry for a message, or nil if untracked.
func (c *BoardConfig) Entry(messageID string) *StarEntry {
	return c.Entries[messageID]
}

// AddStar records a star, creating the entry on first star. A user stars a
// given message at most once; repeats return ErrAlreadyStarred.
func (c *BoardConfig) AddStar(messageID, userID string) (*StarEntry, error) {
	entry := c.Entries[messageID]
	if entry == nil {
		entry = &StarEntry{}
		c.Entries[messageID] = entry
	}
	if entry.HasStarrer(userID) {
		return nil, ErrAlreadyStarred
	}
	entry.Starrers = append(entry.Starrers, userID)
	return entry, nil
}

// Purge forgets a message entirely. A later star starts a fresh lifecycle.
func (c *BoardConfig) Purge(messageID string) {
	delete(c.Entries, messageID)
}

// FindByBoardMessage returns the original message ID whose mirror is
// boardMessageID, or "" if none.
func (c *BoardConfig) FindByBoardMessage(boardMessageID string) string {
	for messageID, entry := range c.Entries {
		if entry.BoardMessageID == boardMessageID {
			return messageID
		}
	}
	return ""
}
