// Package statefile reads and writes the durable desired state document.
//
// The on-disk shape is a small YAML file:
//
//	version: 0.1.0
//	services:
//	    - name: api
//	      version: ^1.2.3
//
// Reading is deliberately forgiving: a missing, empty, unreadable, or
// malformed file is reported as an empty state so a bad external edit never
// takes the process down. Writing is strict and atomic (temp file + rename).
package statefile

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/statekeeper/internal/desired"
	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/logfields"
)

// currentSchemaVersion tracks the schema of the on-disk document, independent
// of service content.
const currentSchemaVersion = "0.1.0"

// CurrentSchemaVersion returns the schema version written to new documents.
func CurrentSchemaVersion() *semver.Version {
	return semver.MustParse(currentSchemaVersion)
}

// document is the YAML shape of the desired state file.
type document struct {
	Version  string          `yaml:"version"`
	Services []serviceRecord `yaml:"services"`
}

type serviceRecord struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Codec serializes and deserializes the desired state document at a fixed path.
type Codec struct {
	path string
}

// New creates a Codec for the given file path.
func New(path string) *Codec {
	return &Codec{path: path}
}

// Path returns the backing file path.
func (c *Codec) Path() string { return c.path }

// Read loads the document and returns its schema version and service mapping.
//
// Missing file: a commented template is created and an empty state reported.
// Unreadable file: a warning is logged, the template recreated, empty state
// reported. Empty content: empty state. Malformed content: a CategoryParse
// error, with the file left untouched; the caller decides whether to absorb
// it as empty (initial load) or keep its last good state (reconciliation).
func (c *Codec) Read() (*semver.Version, map[string]desired.Service, error) {
	empty := map[string]desired.Service{}

	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		slog.Debug("Desired state file does not exist; creating template", logfields.Path(c.path))
		if err := c.writeTemplate(); err != nil {
			return nil, nil, err
		}
		return CurrentSchemaVersion(), empty, nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		slog.Warn("Failed to read desired state file; recreating template",
			logfields.Path(c.path), logfields.Error(err))
		if terr := c.writeTemplate(); terr != nil {
			return nil, nil, terr
		}
		return CurrentSchemaVersion(), empty, nil
	}

	if strings.TrimSpace(string(raw)) == "" {
		slog.Debug("Desired state file is empty", logfields.Path(c.path))
		return CurrentSchemaVersion(), empty, nil
	}

	version, services, err := decode(raw)
	if err != nil {
		return nil, nil, err
	}

	slog.Debug("Loaded desired state",
		logfields.Path(c.path),
		logfields.SchemaVersion(version.String()),
		logfields.ServiceCount(len(services)))
	return version, services, nil
}

// decode parses raw YAML into a schema version and service mapping. Any
// malformed entry fails the whole document, mirroring strict decoding.
func decode(raw []byte) (*semver.Version, map[string]desired.Service, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, ferrors.WrapError(err, ferrors.CategoryParse, "desired state file is not valid YAML").Build()
	}

	version := CurrentSchemaVersion()
	if doc.Version != "" {
		parsed, err := semver.NewVersion(doc.Version)
		if err != nil {
			return nil, nil, ferrors.WrapError(err, ferrors.CategoryParse, "invalid schema version").
				WithContext("version", doc.Version).
				Build()
		}
		version = parsed
	}

	services := make(map[string]desired.Service, len(doc.Services))
	for _, record := range doc.Services {
		req, err := desired.ParseRequirement(record.Version)
		if err != nil {
			return nil, nil, ferrors.WrapError(err, ferrors.CategoryParse, "invalid service version requirement").
				WithContext("service", record.Name).
				Build()
		}
		services[record.Name] = desired.Service{Name: record.Name, Requirement: req}
	}
	return version, services, nil
}

// Write serializes the schema version and name-sorted services, creating
// parent directories as needed. The document is written to a temp file in the
// target directory and renamed into place so a crash mid-write cannot leave a
// truncated file.
func (c *Codec) Write(version *semver.Version, services map[string]desired.Service) error {
	if err := c.ensureParentDir(); err != nil {
		return err
	}

	doc := document{Version: version.String()}
	for _, svc := range desired.Sorted(services) {
		doc.Services = append(doc.Services, serviceRecord{Name: svc.Name, Version: svc.RequirementString()})
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to serialize desired state").
			WithContext("path", c.path).
			Build()
	}

	if err := c.writeAtomic(out); err != nil {
		return err
	}

	slog.Info("Persisted desired state",
		logfields.Path(c.path),
		logfields.ServiceCount(len(services)))
	return nil
}

// EnsureExists creates the template file if nothing is at the path yet.
func (c *Codec) EnsureExists() error {
	if _, err := os.Stat(c.path); err == nil {
		return nil
	}
	slog.Info("Desired state file does not exist; creating template", logfields.Path(c.path))
	return c.writeTemplate()
}

// writeTemplate writes a human-readable, fully commented example document.
// Every line is commented out so the template parses as an empty state until
// an operator uncomments or replaces it.
func (c *Codec) writeTemplate() error {
	if err := c.ensureParentDir(); err != nil {
		return err
	}

	doc := document{
		Version: currentSchemaVersion,
		Services: []serviceRecord{
			{Name: "example-service", Version: "^1.2.3"},
			{Name: "second-example-service", Version: ">0.1.0"},
		},
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to serialize template").Build()
	}

	var b strings.Builder
	b.WriteString("# This is an automatically generated desired state template\n")
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		b.WriteString("# ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	if err := c.writeAtomic([]byte(b.String())); err != nil {
		return err
	}
	slog.Info("Created desired state template", logfields.Path(c.path))
	return nil
}

func (c *Codec) ensureParentDir() error {
	parent := filepath.Dir(c.path)
	if parent == "" || parent == "." {
		return nil
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStateFile, "failed to create state file directory").
			WithContext("dir", parent).
			Build()
	}
	return nil
}

func (c *Codec) writeAtomic(content []byte) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStateFile, "failed to create temp state file").
			WithContext("dir", dir).
			Build()
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryStateFile, "failed to write desired state file").
			WithContext("path", c.path).
			Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryStateFile, "failed to close temp state file").
			WithContext("path", c.path).
			Build()
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryStateFile, "failed to replace desired state file").
			WithContext("path", c.path).
			Build()
	}
	return nil
}
