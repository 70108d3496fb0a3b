package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"scrapejob/pkg/domain"
)

// Rule errors.
var (
	ErrNoContainer     = errors.New("rule has no container selector")
	ErrNoFields        = errors.New("rule has no fields")
	ErrUnknownCleaner  = errors.New("unknown cleaner")
	ErrReservedField   = errors.New("field name is reserved")
	ErrDuplicateField  = errors.New("duplicate field name")
	ErrEmptyFieldSpecs = errors.New("field needs a name and a selector")
)

// Rule describes how to turn a page into records: every element matching
// Container becomes one record, and each Field is looked up inside it.
type Rule struct {
	Name      string            `yaml:"name"`
	Container string            `yaml:"container"`
	Fields    []Field           `yaml:"fields"`
	Static    map[string]string `yaml:"static"`
}

// Field is a named sub-selector evaluated within a matched container.
type Field struct {
	Name     string   `yaml:"name"`
	Selector string   `yaml:"selector"`
	Clean    []string `yaml:"clean"`
	// Optional fields are left empty instead of failing the extraction.
	Optional bool `yaml:"optional"`
}

// Cleaner rewrites a field's raw text.
type Cleaner func(string) string

var cleaners = map[string]Cleaner{
	"trim":            strings.TrimSpace,
	"strip_newlines":  stripNewlines,
	"collapse_spaces": collapseSpaces,
	"strip_currency":  stripCurrency,
	"strip_thousands": stripThousands,
}

// always applied after a field's own cleaners; line breaks become single spaces
var baseCleaners = []Cleaner{stripNewlines, collapseSpaces}

// CleanerNames lists the cleaners a Field may reference.
func CleanerNames() []string {
	return []string{"trim", "strip_newlines", "collapse_spaces", "strip_currency", "strip_thousands"}
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripCurrency(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
}

func stripThousands(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// Validate checks that the rule can be applied.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Container) == "" {
		return ErrNoContainer
	}
	if len(r.Fields) == 0 {
		return ErrNoFields
	}
	seen := make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		if f.Name == "" || f.Selector == "" {
			return fmt.Errorf("%w: %+v", ErrEmptyFieldSpecs, f)
		}
		if f.Name == domain.FieldID || f.Name == domain.FieldSearchedOn {
			return fmt.Errorf("%w: %s", ErrReservedField, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateField, f.Name)
		}
		seen[f.Name] = true
		for _, c := range f.Clean {
			if _, ok := cleaners[c]; !ok {
				return fmt.Errorf("field %s: %w %q (known: %s)", f.Name, ErrUnknownCleaner, c, strings.Join(CleanerNames(), ", "))
			}
		}
	}
	for k := range r.Static {
		if k == domain.FieldID || k == domain.FieldSearchedOn {
			return fmt.Errorf("static %w: %s", ErrReservedField, k)
		}
	}
	return nil
}

func (f Field) clean(s string) string {
	for _, name := range f.Clean {
		s = cleaners[name](s)
	}
	for _, c := range baseCleaners {
		s = c(s)
	}
	return s
}
