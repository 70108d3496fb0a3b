package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the layout of a run's capture timestamp ("2024-01-01 00:00:00").
const TimestampLayout = "2006-01-02 15:04:05"

// Field names shared by every record variant.
const (
	FieldID         = "id"
	FieldSearchedOn = "searched_on"
)

// Record is one scraped item: a flat mapping of named string fields.
//
// News items carry id, source, content and searched_on. Flight-price items
// carry id, departure, destination, departure_date, arrival_date, price,
// currency, provider and searched_on.
type Record map[string]string

// ID returns the record's id field.
func (r Record) ID() ID {
	return ID(r[FieldID])
}

// Clone returns a copy of the record that shares no state with r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Collection is the ordered sequence of records persisted as one document per job.
type Collection []Record

// Timestamp formats t the way record ids and searched_on values expect.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ID identifies a record within the row store: "<timestamp>-result<sequence>".
type ID string

const idSeparator = "-result"

// MakeID builds the canonical id for the seq-th record captured at timestamp ts.
func MakeID(ts string, seq int) ID {
	return ID(ts + idSeparator + strconv.Itoa(seq))
}

// ParseID splits an id back into its timestamp and sequence number.
func ParseID(id ID) (string, int, error) {
	s := string(id)
	i := strings.LastIndex(s, idSeparator)
	if i < 0 {
		return "", 0, fmt.Errorf("parse id %q: missing %q", s, idSeparator)
	}
	seq, err := strconv.Atoi(s[i+len(idSeparator):])
	if err != nil || seq < 0 {
		return "", 0, fmt.Errorf("parse id %q: invalid sequence", s)
	}
	return s[:i], seq, nil
}

// Stamp assigns ids and the searched_on timestamp to records in extraction
// order, starting at sequence 0. The input records are not modified.
func Stamp(records []Record, ts string) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		c := r.Clone()
		c[FieldID] = string(MakeID(ts, i))
		c[FieldSearchedOn] = ts
		out[i] = c
	}
	return out
}
