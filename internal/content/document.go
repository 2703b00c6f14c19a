// Package content reads and writes portfolio content as YAML documents and
// carries the sample portfolio loaded into an empty store.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/validation"
)

//go:embed sample.yaml
var sampleYAML []byte

// Sample returns the bundled sample portfolio.
func Sample() (*model.ContentSnapshot, error) {
	return Decode(bytes.NewReader(sampleYAML))
}

// Decode parses a YAML content document and validates every record. List
// fields left out of the document come back as empty lists.
func Decode(r io.Reader) (*model.ContentSnapshot, error) {
	var snap model.ContentSnapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("content document is empty")
		}
		return nil, fmt.Errorf("parse content document: %w", err)
	}
	normalize(&snap)
	if err := Validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Encode writes snap as a YAML document.
func Encode(w io.Writer, snap *model.ContentSnapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode content document: %w", err)
	}
	return enc.Close()
}

func normalize(snap *model.ContentSnapshot) {
	if snap.Projects == nil {
		snap.Projects = []model.Project{}
	}
	for i := range snap.Projects {
		snap.Projects[i].Normalize()
	}
	if snap.Skills == nil {
		snap.Skills = []model.Skill{}
	}
	if snap.Certifications == nil {
		snap.Certifications = []model.Certification{}
	}
	if snap.Experience == nil {
		snap.Experience = []model.ExperienceEntry{}
	}
	for i := range snap.Experience {
		snap.Experience[i].Normalize()
	}
	if snap.Education == nil {
		snap.Education = []model.EducationEntry{}
	}
}

// Validate applies the same rules the HTTP API enforces on writes, and
// rejects duplicate natural keys. The first problem found is reported with
// the offending record's position.
func Validate(snap *model.ContentSnapshot) error {
	if snap.PersonalInfo != nil {
		if err := validation.Struct(snap.PersonalInfo); err != nil {
			return fmt.Errorf("personal_info: %w", err)
		}
	}
	for i := range snap.Projects {
		if err := validation.Struct(&snap.Projects[i]); err != nil {
			return fmt.Errorf("projects[%d]: %w", i, err)
		}
	}
	if err := validateKeyed("skills", snap.Skills); err != nil {
		return err
	}
	if err := validateKeyed("certifications", snap.Certifications); err != nil {
		return err
	}
	for i := range snap.Experience {
		if err := validation.Struct(&snap.Experience[i]); err != nil {
			return fmt.Errorf("experience[%d]: %w", i, err)
		}
	}
	for i := range snap.Education {
		if err := validation.Struct(&snap.Education[i]); err != nil {
			return fmt.Errorf("education[%d]: %w", i, err)
		}
	}
	if snap.Settings != nil {
		if problems := snap.Settings.Validate(); problems != nil {
			return fmt.Errorf("settings: %w", validation.New(problems))
		}
	}
	return nil
}

func validateKeyed[T model.Entity](name string, items []T) error {
	seen := make(map[string]int, len(items))
	for i := range items {
		if err := validation.Struct(&items[i]); err != nil {
			return fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		key := items[i].Key()
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%s[%d]: %q duplicates %s[%d]", name, i, key, name, prev)
		}
		seen[key] = i
	}
	return nil
}
