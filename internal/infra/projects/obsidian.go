// Package projects implements the project reminder provider over an
// Obsidian vault. Notes are plain Markdown with YAML frontmatter; no
// Obsidian process is involved, the vault is just a directory.
package projects

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"briefing-bot/internal/domain/entity"
)

const (
	maxProjects       = 3
	maxActionsPerNote = 5
)

// Obsidian reads active project notes from a local vault directory.
type Obsidian struct {
	vaultPath string
}

// NewObsidian creates the provider. An empty vaultPath leaves it
// unusable.
func NewObsidian(vaultPath string) *Obsidian {
	return &Obsidian{vaultPath: vaultPath}
}

// Name identifies the provider in logs and degradation notes.
func (p *Obsidian) Name() string { return "obsidian-vault" }

// Available reports whether a vault path is configured and exists.
func (p *Obsidian) Available() bool {
	if p.vaultPath == "" {
		return false
	}
	info, err := os.Stat(p.vaultPath)
	return err == nil && info.IsDir()
}

type frontmatter struct {
	Status string `yaml:"status"`
	Title  string `yaml:"title"`
}

type scannedNote struct {
	note     entity.ProjectNote
	modified time.Time
}

// Fetch returns the most recently touched active projects with their
// open next actions.
func (p *Obsidian) Fetch(ctx context.Context) (entity.ProjectReminders, error) {
	if !p.Available() {
		return entity.ProjectReminders{}, &entity.UnavailableError{Provider: p.Name(), Reason: "vault path not configured or missing"}
	}

	var scanned []scannedNote
	err := filepath.WalkDir(p.vaultPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			// Obsidian keeps caches under .obsidian; skip all dot dirs
			if strings.HasPrefix(d.Name(), ".") && path != p.vaultPath {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		note, active, err := parseNote(path)
		if err != nil || !active {
			return nil // unreadable or inactive notes are simply skipped
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		scanned = append(scanned, scannedNote{note: note, modified: info.ModTime()})
		return nil
	})
	if err != nil {
		return entity.ProjectReminders{}, fmt.Errorf("scan vault: %w", err)
	}

	sort.Slice(scanned, func(i, j int) bool {
		return scanned[i].modified.After(scanned[j].modified)
	})
	if len(scanned) > maxProjects {
		scanned = scanned[:maxProjects]
	}

	reminders := entity.ProjectReminders{Projects: make([]entity.ProjectNote, 0, len(scanned))}
	for _, s := range scanned {
		reminders.Projects = append(reminders.Projects, s.note)
	}
	return reminders, nil
}

// parseNote reads one Markdown file, returning its note and whether its
// frontmatter marks it active.
func parseNote(path string) (entity.ProjectNote, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.ProjectNote{}, false, err
	}

	fm, body := splitFrontmatter(string(data))

	var meta frontmatter
	if fm != "" {
		if err := yaml.Unmarshal([]byte(fm), &meta); err != nil {
			return entity.ProjectNote{}, false, err
		}
	}
	if !isActiveStatus(meta.Status) {
		return entity.ProjectNote{}, false, nil
	}

	title := meta.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), ".md")
	}

	note := entity.ProjectNote{
		Title:       title,
		Status:      meta.Status,
		NextActions: openCheckboxes(body, maxActionsPerNote),
	}
	return note, true, nil
}

func isActiveStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "in-progress", "doing":
		return true
	}
	return false
}

// splitFrontmatter separates the leading YAML block ("---" fenced) from
// the Markdown body.
func splitFrontmatter(content string) (string, string) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", content
	}
	body := rest[end+4:]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}
	return rest[:end], body
}

// openCheckboxes collects unchecked Markdown task items, capped at limit.
func openCheckboxes(body string, limit int) []string {
	var actions []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- [ ]") {
			continue
		}
		action := strings.TrimSpace(trimmed[len("- [ ]"):])
		if action == "" {
			continue
		}
		actions = append(actions, action)
		if len(actions) >= limit {
			break
		}
	}
	return actions
}
