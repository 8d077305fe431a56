package tts

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	providerKey = "tts_provider"
	usersKey    = "users"
)

// userChoice is one user's provider in the settings file. Users are kept as
// a list because viper folds map keys to lower case.
type userChoice struct {
	ID       string `mapstructure:"id"`
	Provider string `mapstructure:"provider"`
}

// Settings persists the default provider and each user's choice in a small
// YAML file. It uses its own viper instance so it never touches the
// application configuration.
type Settings struct {
	path   string
	v      *viper.Viper
	logger *log.Logger

	mu       sync.RWMutex
	current  Provider
	users    map[string]Provider
	onChange func(Provider)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// OpenSettings reads the settings file at path. A missing file yields def.
func OpenSettings(path string, def Provider, logger *log.Logger) (*Settings, error) {
	if path == "" {
		return nil, errors.New("settings file path is required")
	}
	if logger == nil {
		logger = log.Default().WithPrefix("tts")
	}
	if _, err := ParseProvider(string(def)); err != nil {
		def = DefaultProvider
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(providerKey, string(def))

	s := &Settings{
		path:    filepath.Clean(path),
		v:       v,
		logger:  logger,
		current: def,
		users:   map[string]Provider{},
	}
	if err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file location.
func (s *Settings) Path() string { return s.path }

// Provider returns the default provider.
func (s *Settings) Provider() Provider {
	return s.ProviderFor("")
}

// SetProvider changes the default provider.
func (s *Settings) SetProvider(p Provider) error {
	return s.SetProviderFor("", p)
}

// ProviderFor implements ProviderStore. Users without a choice get the
// default.
func (s *Settings) ProviderFor(user string) Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.users[user]; ok && user != "" {
		return p
	}
	return s.current
}

// SetProviderFor implements ProviderStore. The empty user sets the default.
// The choice is written to disk before it takes effect.
func (s *Settings) SetProviderFor(user string, p Provider) error {
	p, err := ParseProvider(string(p))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSettingsClosed
	}

	def, users := s.current, maps.Clone(s.users)
	if users == nil {
		users = make(map[string]Provider)
	}
	if user == "" {
		def = p
	} else {
		users[user] = p
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := writeSettings(s.path, def, users); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	s.current, s.users = def, users
	return nil
}

// writeSettings replaces the file atomically so the watcher never reads a
// partial write. s.v must not hold an override; it would mask external edits.
func writeSettings(path string, def Provider, users map[string]Provider) error {
	w := viper.New()
	w.SetConfigType("yaml")
	w.Set(providerKey, string(def))
	if len(users) > 0 {
		ids := slices.Sorted(maps.Keys(users))
		list := make([]map[string]string, 0, len(ids))
		for _, id := range ids {
			list = append(list, map[string]string{"id": id, "provider": string(users[id])})
		}
		w.Set(usersKey, list)
	}

	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".yaml"
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmp := filepath.Join(filepath.Dir(path), "."+base+".tmp"+ext)
	if err := w.WriteConfigAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// OnChange registers fn to be called when the file is changed externally.
func (s *Settings) OnChange(fn func(Provider)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onChange = fn
}

// Watch reloads the provider whenever another process edits the file.
func (s *Settings) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = w.Close()
		return fmt.Errorf("create settings directory: %w", err)
	}
	// Watch the directory: editors replace files rather than write in place.
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.mu.Lock()
	s.watcher = w
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.watch(w, s.done)
	return nil
}

func (s *Settings) watch(w *fsnotify.Watcher, done chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s.reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("settings watcher error", "err", err)
		case <-done:
			return
		}
	}
}

func (s *Settings) reload() {
	s.mu.Lock()
	before := s.current
	if err := s.read(); err != nil {
		s.mu.Unlock()
		s.logger.Warn("failed to reload settings", "path", s.path, "err", err)
		return
	}
	after, fn := s.current, s.onChange
	s.mu.Unlock()

	if after != before {
		s.logger.Info("tts provider changed", "from", before, "to", after)
		if fn != nil {
			fn(after)
		}
	}
}

// read loads the file into s.current and s.users. Callers hold s.mu or own
// s exclusively.
func (s *Settings) read() error {
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return fmt.Errorf("read settings: %w", err)
		}
	}

	if p, err := ParseProvider(s.v.GetString(providerKey)); err != nil {
		s.logger.Warn("ignoring invalid provider in settings", "path", s.path, "err", err)
	} else {
		s.current = p
	}

	var list []userChoice
	if err := s.v.UnmarshalKey(usersKey, &list); err != nil {
		s.logger.Warn("ignoring invalid user choices in settings", "path", s.path, "err", err)
		return nil
	}
	users := make(map[string]Provider, len(list))
	for _, u := range list {
		p, err := ParseProvider(u.Provider)
		if u.ID == "" || err != nil {
			s.logger.Warn("ignoring invalid user choice in settings", "user", u.ID, "provider", u.Provider)
			continue
		}
		users[u.ID] = p
	}
	s.users = users
	return nil
}

// Close stops the watcher.
func (s *Settings) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	w, done := s.watcher, s.done
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	close(done)
	err := w.Close()
	s.wg.Wait()
	return err
}
