package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileStore persists TimerSettings as a UTF-8 text file. Files ending in
// .yaml or .yml are written as YAML, everything else as JSON.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (fs *FileStore) Path() string { return fs.path }

// Load reads the settings file. A missing or unreadable file yields Defaults;
// absent or invalid fields fall back to their default value individually.
func (fs *FileStore) Load() TimerSettings {
	settings := Defaults()

	raw, err := os.ReadFile(fs.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fs.logger.Warn("read settings file", "path", fs.path, "error", err)
		}
		return settings
	}

	fileData := Defaults()
	if err := fs.decodeFields(raw, &fileData); err != nil {
		fs.logger.Warn("parse settings file, using defaults", "path", fs.path, "error", err)
		return settings
	}

	applyFileSettings(&settings, fileData)
	return settings
}

// Save writes settings atomically. The error is non-nil on any I/O failure.
func (fs *FileStore) Save(settings TimerSettings) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	serialized, err := fs.marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmpPath := fs.path + ".tmp"
	if err := os.WriteFile(tmpPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

func (fs *FileStore) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(fs.path))
	return ext == ".yaml" || ext == ".yml"
}

// decodeFields decodes the file one field at a time, so a mistyped value only
// loses that field. The error is non-nil when the file is not an object.
func (fs *FileStore) decodeFields(raw []byte, out *TimerSettings) error {
	targets := fileFields(out)

	if fs.isYAML() {
		var doc map[string]yaml.Node
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return err
		}
		for name, node := range doc {
			if target, ok := targets[name]; ok {
				if err := node.Decode(target); err != nil {
					fs.logger.Warn("invalid settings field, using default", "field", name, "error", err)
				}
			}
		}
		return nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for name, value := range doc {
		if target, ok := targets[name]; ok {
			if err := json.Unmarshal(value, target); err != nil {
				fs.logger.Warn("invalid settings field, using default", "field", name, "error", err)
			}
		}
	}
	return nil
}

func fileFields(s *TimerSettings) map[string]any {
	return map[string]any{
		"pomodoro_time":        &s.PomodoroTime,
		"short_break_time":     &s.ShortBreakTime,
		"long_break_time":      &s.LongBreakTime,
		"notification_type":    &s.NotificationType,
		"pomodoro_sound":       &s.PomodoroSound,
		"short_break_sound":    &s.ShortBreakSound,
		"long_break_sound":     &s.LongBreakSound,
		"auto_start_breaks":    &s.AutoStartBreaks,
		"auto_start_pomodoros": &s.AutoStartPomodoros,
	}
}

func (fs *FileStore) marshal(settings TimerSettings) ([]byte, error) {
	if fs.isYAML() {
		return yaml.Marshal(settings)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func applyFileSettings(settings *TimerSettings, fileData TimerSettings) {
	if fileData.PomodoroTime > 0 {
		settings.PomodoroTime = fileData.PomodoroTime
	}
	if fileData.ShortBreakTime > 0 {
		settings.ShortBreakTime = fileData.ShortBreakTime
	}
	if fileData.LongBreakTime > 0 {
		settings.LongBreakTime = fileData.LongBreakTime
	}
	if fileData.NotificationType.Valid() {
		settings.NotificationType = fileData.NotificationType
	}
	if fileData.PomodoroSound != "" {
		settings.PomodoroSound = fileData.PomodoroSound
	}
	if fileData.ShortBreakSound != "" {
		settings.ShortBreakSound = fileData.ShortBreakSound
	}
	if fileData.LongBreakSound != "" {
		settings.LongBreakSound = fileData.LongBreakSound
	}

	settings.AutoStartBreaks = fileData.AutoStartBreaks
	settings.AutoStartPomodoros = fileData.AutoStartPomodoros
}
