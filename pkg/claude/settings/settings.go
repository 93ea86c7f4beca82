// Package settings reads permission rule snapshots from the user, project
// and local settings files. Files are decoded as YAML, which also accepts
// JSON.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/claude/permissions"
)

// File is the subset of a settings file the control plane reads.
type File struct {
	Permissions *Permissions      `json:"permissions" yaml:"permissions"`
	Model       string            `json:"model" yaml:"model"`
	Env         map[string]string `json:"env" yaml:"env"`
}

// Permissions is the permissions block of a settings file.
type Permissions struct {
	Allow                 []string `json:"allow" yaml:"allow"`
	Ask                   []string `json:"ask" yaml:"ask"`
	Deny                  []string `json:"deny" yaml:"deny"`
	AdditionalDirectories []string `json:"additionalDirectories" yaml:"additionalDirectories"`
	DefaultMode           string   `json:"defaultMode" yaml:"defaultMode"`
}

// Destination maps a settings source to the rule scope it feeds.
func Destination(source options.SettingSource) permissions.PermissionUpdateDestination {
	switch source {
	case options.SettingSourceUser:
		return permissions.PermissionDestinationUserSettings
	case options.SettingSourceProject:
		return permissions.PermissionDestinationProjectSettings
	default:
		return permissions.PermissionDestinationLocalSettings
	}
}

// Loader resolves and reads settings files.
type Loader struct {
	// Home holds user settings. Defaults to ~/.claude.
	Home string
	// Cwd is the project root. Project and local settings live in
	// <Cwd>/.claude.
	Cwd string
	// Sources selects the scopes to read, all three when empty.
	Sources []options.SettingSource
	Logger  *zap.Logger
}

// NewLoader builds a loader from agent options.
func NewLoader(opts *options.AgentOptions) *Loader {
	l := &Loader{Logger: opts.GetLogger()}
	if opts == nil {
		return l
	}
	l.Cwd = opts.WorkDir()
	l.Sources = opts.SettingSources
	if opts.SettingsHome != nil {
		l.Home = *opts.SettingsHome
	}

	return l
}

// Path returns the settings file for source, or "" when it cannot be
// resolved.
func (l *Loader) Path(source options.SettingSource) string {
	switch source {
	case options.SettingSourceUser:
		home := l.Home
		if home == "" {
			dir, err := os.UserHomeDir()
			if err != nil {
				return ""
			}
			home = filepath.Join(dir, ".claude")
		}

		return filepath.Join(home, "settings.json")
	case options.SettingSourceProject:
		return filepath.Join(l.root(), ".claude", "settings.json")
	case options.SettingSourceLocal:
		return filepath.Join(l.root(), ".claude", "settings.local.json")
	default:
		return ""
	}
}

// Paths returns the settings files of every selected source.
func (l *Loader) Paths() []string {
	var paths []string
	for _, source := range l.sources() {
		if p := l.Path(source); p != "" {
			paths = append(paths, p)
		}
	}

	return paths
}

// Load reads every selected source into one snapshot. Missing files are
// skipped. The most specific defaultMode wins.
func (l *Loader) Load() (permissions.Snapshot, error) {
	logger := l.logger()
	snap := permissions.Snapshot{
		Directories: make(map[permissions.PermissionUpdateDestination][]string),
	}
	var modeRank int
	for _, source := range l.sources() {
		path := l.Path(source)
		if path == "" {
			continue
		}
		file, err := LoadFile(path)
		if err != nil {
			return permissions.Snapshot{}, fmt.Errorf("load %s settings: %w", source, err)
		}
		if file == nil || file.Permissions == nil {
			logger.Debug("settings layer skipped", zap.String("source", string(source)), zap.String("path", path))

			continue
		}
		dest := Destination(source)
		rules, err := file.Permissions.Rules(dest)
		if err != nil {
			return permissions.Snapshot{}, fmt.Errorf("load %s settings: %w", source, err)
		}
		snap.Rules = append(snap.Rules, rules...)
		if dirs := file.Permissions.AdditionalDirectories; len(dirs) > 0 {
			snap.Directories[dest] = append(snap.Directories[dest], dirs...)
		}
		if mode := options.PermissionMode(file.Permissions.DefaultMode); mode.Valid() && rank(source) > modeRank {
			modeRank = rank(source)
			snap.DefaultMode = &mode
		}
		logger.Debug("settings layer loaded",
			zap.String("source", string(source)),
			zap.String("path", path),
			zap.Int("rules", len(rules)),
		)
	}

	return snap, nil
}

// Rules converts the allow, ask and deny lists into rules for dest.
func (p *Permissions) Rules(dest permissions.PermissionUpdateDestination) ([]permissions.PermissionRule, error) {
	var out []permissions.PermissionRule
	lists := []struct {
		behavior permissions.PermissionBehavior
		rules    []string
	}{
		{permissions.PermissionBehaviorDeny, p.Deny},
		{permissions.PermissionBehaviorAsk, p.Ask},
		{permissions.PermissionBehaviorAllow, p.Allow},
	}
	for _, list := range lists {
		for _, raw := range list.rules {
			value, err := permissions.ParseRule(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, permissions.PermissionRule{
				PermissionRuleValue: value,
				Behavior:            list.behavior,
				Destination:         dest,
			})
		}
	}

	return out, nil
}

// LoadFile decodes one settings file. A missing file returns (nil, nil).
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		// Tab-indented JSON is not valid YAML.
		f = File{}
		if jsonErr := json.Unmarshal(data, &f); jsonErr != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	return &f, nil
}

func (l *Loader) sources() []options.SettingSource {
	if len(l.Sources) > 0 {
		return l.Sources
	}

	return []options.SettingSource{
		options.SettingSourceUser,
		options.SettingSourceProject,
		options.SettingSourceLocal,
	}
}

func (l *Loader) root() string {
	if l.Cwd != "" {
		return l.Cwd
	}

	return "."
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}

	return l.Logger.Named("settings")
}

func rank(source options.SettingSource) int {
	switch source {
	case options.SettingSourceUser:
		return 1
	case options.SettingSourceProject:
		return 2
	case options.SettingSourceLocal:
		return 3
	default:
		return 0
	}
}
