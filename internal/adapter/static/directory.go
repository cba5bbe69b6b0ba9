package static

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	BroadcasterID        string `yaml:"broadcaster_id"`
	DisplayName          string `yaml:"display_name"`
	WebhookURL           string `yaml:"webhook_url"`
	RequiredTitleKeyword string `yaml:"required_title_keyword"`
	Username             string `yaml:"username"`
	AvatarURL            string `yaml:"avatar_url"`
}

type fileFormat struct {
	Broadcasters []fileEntry `yaml:"broadcasters"`
}

// Directory is a domain.BroadcasterDirectory backed by a YAML file.
type Directory struct {
	path    string
	entries atomic.Pointer[map[string]domain.BroadcasterEntry]
}

// Load reads path and returns a ready Directory.
func Load(path string) (*Directory, error) {
	entries, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	d := &Directory{path: path}
	d.entries.Store(&entries)
	return d, nil
}

func (d *Directory) Lookup(_ context.Context, broadcasterID string) (*domain.BroadcasterEntry, error) {
	entry, ok := (*d.entries.Load())[broadcasterID]
	if !ok {
		return nil, domain.ErrBroadcasterNotFound
	}
	return &entry, nil
}

func (d *Directory) List(context.Context) ([]domain.BroadcasterEntry, error) {
	m := *d.entries.Load()
	out := make([]domain.BroadcasterEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BroadcasterID < out[j].BroadcasterID })
	return out, nil
}

// Reload re-reads the file. On failure the previous entries stay active.
// A file with no entries is rejected; editors truncate before writing.
func (d *Directory) Reload() error {
	entries, err := parseFile(d.path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("broadcaster file has no entries")
	}
	d.entries.Store(&entries)
	return nil
}

// Watch reloads the directory whenever the file changes. It runs until ctx is cancelled.
// The parent directory is watched so saves that rename a temp file over the
// path are seen as well as writes in place.
func (d *Directory) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(d.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", d.path, err)
	}

	slog.Info("Watching broadcaster file for changes", "path", d.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := d.Reload(); err != nil {
				slog.Error("Broadcaster file reload failed, keeping previous entries", "path", d.path, "error", err)
				continue
			}
			slog.Info("Broadcaster file reloaded", "path", d.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Broadcaster file watcher error", "error", err)
		}
	}
}

func parseFile(path string) (map[string]domain.BroadcasterEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read broadcaster file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (map[string]domain.BroadcasterEntry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse broadcaster file: %w", err)
	}

	entries := make(map[string]domain.BroadcasterEntry, len(f.Broadcasters))
	for i, fe := range f.Broadcasters {
		if fe.BroadcasterID == "" {
			return nil, fmt.Errorf("broadcaster %d: broadcaster_id is required", i)
		}
		if _, dup := entries[fe.BroadcasterID]; dup {
			return nil, fmt.Errorf("broadcaster %s: duplicate entry", fe.BroadcasterID)
		}
		webhook := os.ExpandEnv(fe.WebhookURL)
		if webhook == "" {
			return nil, fmt.Errorf("broadcaster %s: webhook_url is empty", fe.BroadcasterID)
		}
		entries[fe.BroadcasterID] = domain.BroadcasterEntry{
			BroadcasterID:        fe.BroadcasterID,
			DisplayName:          fe.DisplayName,
			WebhookURL:           webhook,
			RequiredTitleKeyword: fe.RequiredTitleKeyword,
			Username:             fe.Username,
			AvatarURL:            os.ExpandEnv(fe.AvatarURL),
		}
	}
	return entries, nil
}
