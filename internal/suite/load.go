package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadMode controls how errors are handled when loading a directory of
// suites.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes for suite loading.
const (
	ErrCodeNotFound  = "E_SUITE_NOT_FOUND"
	ErrCodeParse     = "E_SUITE_PARSE"
	ErrCodeSchema    = "E_SUITE_SCHEMA"
	ErrCodeStructure = "E_SUITE_STRUCTURE"
)

// LoadError is a positioned suite-loading failure.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads, schema-validates, and decodes one suite file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}

	if err := ValidateYAML(path, data); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error()}
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}

	if err := checkStructure(&s); err != nil {
		return nil, &LoadError{Code: ErrCodeStructure, Path: path, Message: err.Error()}
	}
	return &s, nil
}

// LoadDir loads every *.yaml/*.yml suite under dir, sorted by path.
func LoadDir(dir string, mode LoadMode) ([]*Suite, []error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Path: dir, Message: "suite directory not found"}}
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Path: dir, Message: err.Error()}}
	}
	sort.Strings(paths)

	var suites []*Suite
	var errs []error
	for _, path := range paths {
		s, err := Load(path)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return nil, errs
			}
			continue
		}
		suites = append(suites, s)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return suites, nil
}

// checkStructure enforces the cross-field rules the schema cannot express.
func checkStructure(s *Suite) error {
	if len(s.Checks) == 0 {
		return fmt.Errorf("suite %q has no checks", s.Name)
	}

	needsNotion, needsDB := false, false
	for i, c := range s.Checks {
		hasMotif, hasRows := c.Motif != nil, c.Rows != nil
		if hasMotif == hasRows {
			return fmt.Errorf("check %d (%q) must have exactly one of motif or rows", i, c.Name)
		}
		if hasMotif {
			needsNotion = true
		}
		if hasRows {
			needsDB = true
			if c.Rows.Expected.SQL == "" && c.Rows.Expected.Table == "" {
				return fmt.Errorf("check %d (%q) has no expected query", i, c.Name)
			}
			if c.Rows.Actual.SQL == "" && c.Rows.Actual.Table == "" {
				return fmt.Errorf("check %d (%q) has no actual query", i, c.Name)
			}
		}
	}

	if needsNotion {
		if s.Notion == nil || (s.Notion.PageID == "" && s.Notion.PageTitle == "") {
			return fmt.Errorf("suite %q has motif checks but no notion target", s.Name)
		}
	}
	if needsDB && s.Database == nil {
		return fmt.Errorf("suite %q has row checks but no database target", s.Name)
	}
	return nil
}
