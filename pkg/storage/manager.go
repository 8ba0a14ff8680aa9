package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"xqcrawl/pkg/models"
)

var unsafeRe = regexp.MustCompile(`[<>:"/\\|?*]`)

// Manager owns one user's output directory and answers whether an item
// has already been materialized. Post records are written as
// deterministic JSON; the markdown rendering layer consumes these files
// downstream.
type Manager struct {
	userDir  string
	postsDir string
	existing map[string]bool
	mu       sync.RWMutex
}

// NewManager creates (if needed) and scans the output directory for one
// user under outRoot.
func NewManager(outRoot, nickname string) (*Manager, error) {
	userDir := filepath.Join(outRoot, SafeFilename(nickname))
	postsDir := filepath.Join(userDir, "posts")
	if err := os.MkdirAll(postsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		userDir:  userDir,
		postsDir: postsDir,
		existing: make(map[string]bool),
	}
	if err := m.scanExisting(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) scanExisting() error {
	entries, err := os.ReadDir(m.postsDir)
	if err != nil {
		return fmt.Errorf("failed to scan posts directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			m.existing[entry.Name()] = true
		}
	}
	return nil
}

// Filename derives the deterministic destination name for a post:
// date, id, then a slug from the title or the opening of the body.
func (m *Manager) Filename(post *models.Post) string {
	date := "unknown"
	if !post.CreatedAt.IsZero() {
		date = post.CreatedAt.Format("2006-01-02")
	}

	slug := post.Title
	if slug == "" {
		slug = firstRunes(post.BodyText, 20)
	}
	slug = strings.ReplaceAll(slug, "\n", " ")
	slug = SafeFilename(slug)
	slug = firstRunes(slug, 50)
	if slug == "" {
		slug = "post"
	}

	return fmt.Sprintf("%s_%d_%s.json", date, post.ID, slug)
}

// Exists reports whether the named destination file is already
// materialized, consulting the scan cache first.
func (m *Manager) Exists(filename string) bool {
	m.mu.RLock()
	cached := m.existing[filename]
	m.mu.RUnlock()
	if cached {
		return true
	}

	if _, err := os.Stat(filepath.Join(m.postsDir, filename)); err == nil {
		m.mu.Lock()
		m.existing[filename] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// SaveRecord persists one post record atomically. The JSON field order
// follows the struct definition, so repeated runs produce byte-identical
// files.
func (m *Manager) SaveRecord(post *models.Post) error {
	filename := m.Filename(post)
	data, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode post %d: %w", post.ID, err)
	}
	data = append(data, '\n')

	if err := m.writeAtomic(filepath.Join(m.postsDir, filename), data); err != nil {
		return err
	}

	m.mu.Lock()
	m.existing[filename] = true
	m.mu.Unlock()
	return nil
}

// SaveProfile persists the resolved profile next to the posts.
func (m *Manager) SaveProfile(profile *models.Profile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	data = append(data, '\n')
	return m.writeAtomic(filepath.Join(m.userDir, "profile.json"), data)
}

func (m *Manager) writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

// UserDir returns the user's output directory, where the crawl state
// also lives.
func (m *Manager) UserDir() string {
	return m.userDir
}

// PostsDir returns the posts directory.
func (m *Manager) PostsDir() string {
	return m.postsDir
}

// SafeFilename strips characters that are unsafe in file names.
func SafeFilename(name string) string {
	name = unsafeRe.ReplaceAllString(name, "")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "unnamed"
	}
	return name
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
