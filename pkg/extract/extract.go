// Package extract turns rendered HTML into flat records using declarative rules.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"scrapejob/pkg/domain"
)

// ErrMissingField is returned when a matched container lacks a required field.
var ErrMissingField = errors.New("missing field")

// Records is a one-pass cursor over the records of a page, in document order.
// It cannot be restarted; re-parse the HTML to iterate again.
type Records struct {
	rule       Rule
	containers *goquery.Selection
	next       int
	cur        domain.Record
	err        error
}

// Extract parses html and prepares a cursor over the containers matching rule.
func Extract(html string, rule Rule) (*Records, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule %s: %w", rule.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &Records{
		rule:       rule,
		containers: doc.Find(rule.Container),
	}, nil
}

// Next advances to the next container. It returns false when the page is
// exhausted or a container could not be turned into a record; check Err.
func (r *Records) Next() bool {
	r.cur = nil
	if r.err != nil || r.next >= r.containers.Length() {
		return false
	}

	idx := r.next
	r.next++

	rec, err := r.build(idx, r.containers.Eq(idx))
	if err != nil {
		r.err = err
		r.next = r.containers.Length()
		return false
	}
	r.cur = rec
	return true
}

// Record returns the record produced by the last successful Next.
func (r *Records) Record() domain.Record {
	return r.cur
}

// Err returns the error that stopped iteration, if any.
func (r *Records) Err() error {
	return r.err
}

func (r *Records) build(idx int, container *goquery.Selection) (domain.Record, error) {
	rec := make(domain.Record, len(r.rule.Fields)+len(r.rule.Static))
	for k, v := range r.rule.Static {
		rec[k] = v
	}

	for _, f := range r.rule.Fields {
		sel := container.Find(f.Selector).First()
		if sel.Length() == 0 {
			if f.Optional {
				rec[f.Name] = ""
				continue
			}
			return nil, fmt.Errorf("%w: %s (selector %q) in container %d", ErrMissingField, f.Name, f.Selector, idx)
		}
		rec[f.Name] = f.clean(sel.Text())
	}

	return rec, nil
}

// Collect drains the cursor. Either every record is returned or none is.
func Collect(r *Records) ([]domain.Record, error) {
	var out []domain.Record
	for r.Next() {
		out = append(out, r.Record())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
