package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"xqcrawl/pkg/logger"
)

// State is the persisted resume record for one user. LastCrawledPostID
// zero means no successful run has completed yet, so everything
// available is fetched.
type State struct {
	LastCrawledPostID int64     `json:"last_crawled_post_id,omitempty"`
	LastCrawledAt     time.Time `json:"last_crawled_at,omitempty"`
}

// Manager reads and writes the per-user crawl state file. One writer per
// user directory; concurrent runs for the same user must be serialized
// by the caller.
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a manager for the state file inside userDir.
func NewManager(userDir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		path:   filepath.Join(userDir, "crawl_state.json"),
		logger: log,
	}
}

// Load reads the persisted state. A missing file yields a zero state,
// not an error.
func (m *Manager) Load() (*State, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", m.path, err)
	}

	m.logger.DebugWithFields("crawl state loaded", map[string]interface{}{
		"path":      m.path,
		"watermark": st.LastCrawledPostID,
	})
	return &st, nil
}

// Save writes the state atomically via a temp file and rename, keeping
// the file human-inspectable.
func (m *Manager) Save(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	data = append(data, '\n')

	tempPath := m.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	m.logger.DebugWithFields("crawl state saved", map[string]interface{}{
		"path":      m.path,
		"watermark": st.LastCrawledPostID,
	})
	return nil
}

// Path returns the state file location.
func (m *Manager) Path() string {
	return m.path
}
