package lib

import (
	"context"
	"sort"
	"strings"
)

/*
	This file defines the record model of the replicated graph store.

	A Record is a flat map of leaf fields. Each leaf merges independently (last-write-wins), so set-valued
	attributes are modeled as one leaf per member under a dotted prefix (e.g. 'validators.<agentId>' = true).
	Two writers appending different members never overwrite each other, and two writers appending the same
	member write the same leaf, which makes such appends idempotent.
*/

// GraphI is the replicated graph store capability consumed by the engine
type GraphI interface {
	// Put() merges the partial record into the path; fields not named are left untouched
	Put(ctx context.Context, path string, fields Record) ErrorI
	// Read() returns the merged view of the path from whatever replicas answered within the settle budget
	Read(ctx context.Context, path string) (rec Record, found bool)
	// MapChildren() returns the merged view of every currently visible child of the path keyed by child id
	MapChildren(ctx context.Context, path string) map[string]Record
}

const (
	PathSeparator = "/"
	SetSeparator  = "."
)

const (
	MempoolPath     = "mempool"     // pending papers (and promoted tombstones)
	PapersPath      = "papers"      // verified and rejected papers
	AgentsPath      = "agents"      // agent records
	ValidationsPath = "validations" // validations/<paperId>/<validatorId>
)

// Record is a flat map of leaf fields
type Record map[string]any

// JoinPath() builds a store path from segments
func JoinPath(segments ...string) string { return strings.Join(segments, PathSeparator) }

// SetKey() returns the leaf key of a set member
func SetKey(set, member string) string { return set + SetSeparator + member }

// ValidID() checks an id may be used as a path segment
func ValidID(id string) bool {
	return strings.TrimSpace(id) != "" && !strings.Contains(id, PathSeparator)
}

// Has() returns true if the field is present
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String() returns a string field or ""
func (r Record) String(field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

// Float() returns a numeric field or 0
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}

// Int() returns a numeric field truncated to an int
func (r Record) Int(field string) int { return int(r.Float(field)) }

// Int64() returns a numeric field truncated to an int64
func (r Record) Int64(field string) int64 { return int64(r.Float(field)) }

// Bool() returns a boolean field or false
func (r Record) Bool(field string) bool {
	v, _ := r[field].(bool)
	return v
}

// Members() returns the sorted members of a set whose leaves are truthy (true or a non-zero value)
func (r Record) Members(set string) (members []string) {
	prefix := set + SetSeparator
	for k, v := range r {
		if !strings.HasPrefix(k, prefix) || !truthy(v) {
			continue
		}
		members = append(members, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(members)
	return
}

// MemberValues() returns the numeric leaf values of a set keyed by member
func (r Record) MemberValues(set string) map[string]float64 {
	prefix, out := set+SetSeparator, make(map[string]float64)
	for k := range r {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = r.Float(k)
		}
	}
	return out
}

// truthy() treats false, nil, "" and 0 as removed set members
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	}
	return true
}
