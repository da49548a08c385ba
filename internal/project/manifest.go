package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file keel looks for in a compilation unit's directory.
const ManifestName = "keel.toml"

var (
	// ErrPackageSectionMissing indicates that [package] is missing in a manifest.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrLayoutLogMissing indicates that [layout].log is missing in a manifest.
	ErrLayoutLogMissing = errors.New("missing [layout].log")
)

// Manifest describes one compilation unit's keel.toml.
type Manifest struct {
	// Name of the compilation unit (assembly/module being compiled).
	Name string
	// Triple selects the target; empty means the default target.
	Triple string
	// Jobs bounds the parallel discovery workers; 0 means all CPUs.
	Jobs int
	// Log is the discovery log recorded by codegen, relative to the manifest.
	Log string
	// Fixed lists layout blobs to seed as externally computed dictionaries.
	Fixed []string
	// Out is where the finalized layout blob is written.
	Out string
}

type manifestFile struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Target struct {
		Triple string `toml:"triple"`
	} `toml:"target"`
	Build struct {
		Jobs int `toml:"jobs"`
	} `toml:"build"`
	Layout struct {
		Log   string   `toml:"log"`
		Fixed []string `toml:"fixed"`
		Out   string   `toml:"out"`
	} `toml:"layout"`
}

// Load parses a keel.toml manifest. Relative paths inside the manifest are
// resolved against its directory.
func Load(path string) (Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	log := strings.TrimSpace(cfg.Layout.Log)
	if log == "" {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrLayoutLogMissing)
	}
	dir := filepath.Dir(path)
	m := Manifest{
		Name:   strings.TrimSpace(cfg.Package.Name),
		Triple: strings.TrimSpace(cfg.Target.Triple),
		Jobs:   cfg.Build.Jobs,
		Log:    resolve(dir, log),
		Out:    strings.TrimSpace(cfg.Layout.Out),
	}
	if m.Out != "" {
		m.Out = resolve(dir, m.Out)
	}
	for _, fixed := range cfg.Layout.Fixed {
		fixed = strings.TrimSpace(fixed)
		if fixed == "" {
			continue
		}
		m.Fixed = append(m.Fixed, resolve(dir, fixed))
	}
	return m, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, filepath.FromSlash(path))
}
