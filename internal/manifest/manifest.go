// Package manifest loads artifact manifests: a declarative list of diagram
// files with their kind and processing stage, in TOML or YAML.
package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"tracekg/internal/errors"
	"tracekg/internal/markup"
	"tracekg/internal/model"
)

// Entry declares one artifact. Path may be a glob pattern relative to the
// manifest's directory. Kind is optional; when empty it is detected from
// the file itself.
type Entry struct {
	Path  string `toml:"path" yaml:"path"`
	Kind  string `toml:"kind,omitempty" yaml:"kind,omitempty"`
	Stage string `toml:"stage,omitempty" yaml:"stage,omitempty"`
}

// Manifest is a set of artifact declarations.
type Manifest struct {
	Artifacts []Entry `toml:"artifacts" yaml:"artifacts"`

	dir string
}

// Artifact is one resolved input file.
type Artifact struct {
	Path  string
	Kind  markup.Kind // KindAuto means detect from content
	Stage model.Stage
}

// Load reads a manifest file, dispatching on its extension.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ManifestInvalid, "reading "+path, err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &m)
	default:
		return nil, errors.New(errors.ManifestInvalid,
			"unsupported manifest format "+filepath.Ext(path)+" (want .toml, .yaml, or .yml)")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ManifestInvalid, "parsing "+path, err)
	}

	m.dir = filepath.Dir(path)
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Artifacts) == 0 {
		return errors.New(errors.ManifestInvalid, "manifest declares no artifacts")
	}
	for i, e := range m.Artifacts {
		if e.Path == "" {
			return errors.New(errors.ManifestInvalid,
				"artifact entry "+strconv.Itoa(i)+" has no path")
		}
		if e.Kind != "" {
			if _, ok := markup.ParseKind(e.Kind); !ok {
				return errors.New(errors.ManifestInvalid,
					"artifact "+e.Path+": unknown kind "+e.Kind)
			}
		}
		switch model.Stage(e.Stage) {
		case "", model.StageRequirement, model.StageDesign:
		default:
			return errors.New(errors.ManifestInvalid,
				"artifact "+e.Path+": unknown stage "+e.Stage)
		}
	}
	return nil
}

// Resolve expands every entry's glob against the manifest directory and
// returns the concrete artifact list, ordered by path within each entry.
// An entry matching nothing is an error: a manifest names inputs that are
// supposed to exist.
func (m *Manifest) Resolve(defaultStage model.Stage) ([]Artifact, error) {
	var out []Artifact
	for _, e := range m.Artifacts {
		pattern := e.Path
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(m.dir, pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrap(errors.ManifestInvalid, "bad glob "+e.Path, err)
		}
		if len(matches) == 0 {
			return nil, errors.New(errors.ManifestInvalid, "no files match "+e.Path)
		}
		sort.Strings(matches)

		kind := markup.KindAuto
		if e.Kind != "" {
			kind, _ = markup.ParseKind(e.Kind)
		}
		stage := defaultStage
		if e.Stage != "" {
			stage = model.Stage(e.Stage)
		}

		for _, path := range matches {
			out = append(out, Artifact{Path: path, Kind: kind, Stage: stage})
		}
	}
	return out, nil
}
