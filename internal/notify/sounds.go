package notify

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SoundNone disables sound for a phase.
const SoundNone = "none"

var builtinSounds = []string{"notification", "soft_bell", "bell", "bonus_1", "bonus_2"}

var soundNames = map[string]string{
	SoundNone:      "No sound",
	"notification": "Notification",
	"soft_bell":    "Soft bell",
	"bell":         "Bell",
	"bonus_1":      "Bonus 1",
	"bonus_2":      "Bonus 2",
}

// SoundCatalog lists the selectable sound identifiers.
type SoundCatalog struct {
	ids   []string
	files map[string]string
}

// LoadSounds builds a catalog from the built-in identifiers plus every .wav
// file in dir. A missing or unreadable dir is logged and otherwise ignored.
func LoadSounds(dir string, logger *slog.Logger) *SoundCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &SoundCatalog{files: make(map[string]string)}

	seen := map[string]bool{SoundNone: true}
	var extra []string
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			logger.Warn("read sounds directory", "dir", dir, "error", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".wav") {
				continue
			}
			id := strings.TrimSuffix(name, filepath.Ext(name))
			c.files[id] = filepath.Join(dir, name)
			if !seen[id] && !isBuiltin(id) {
				extra = append(extra, id)
			}
			seen[id] = true
		}
	}
	sort.Strings(extra)

	c.ids = append(c.ids, SoundNone)
	c.ids = append(c.ids, builtinSounds...)
	c.ids = append(c.ids, extra...)
	return c
}

func isBuiltin(id string) bool {
	for _, b := range builtinSounds {
		if b == id {
			return true
		}
	}
	return false
}

// IDs returns the identifiers in display order, "none" first.
func (c *SoundCatalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Has reports whether id is selectable.
func (c *SoundCatalog) Has(id string) bool {
	for _, known := range c.ids {
		if known == id {
			return true
		}
	}
	return false
}

// File returns the .wav path backing id, if any.
func (c *SoundCatalog) File(id string) (string, bool) {
	path, ok := c.files[id]
	return path, ok
}

// DisplayName returns the label for id. Unknown ids are title-cased with
// underscores turned into spaces.
func DisplayName(id string) string {
	if name, ok := soundNames[id]; ok {
		return name
	}
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
