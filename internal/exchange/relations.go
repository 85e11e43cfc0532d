package exchange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RelationStatus tags the outcome of parsing a relation-list cell.
type RelationStatus int

const (
	// RelationsEmpty means the cell was absent, blank or an empty list.
	RelationsEmpty RelationStatus = iota
	// RelationsParsed means the cell held a non-empty list of identifiers.
	RelationsParsed
	// RelationsMalformed means the cell could not be read as a list of identifiers.
	// Callers treat it as "no relations".
	RelationsMalformed
)

func (s RelationStatus) String() string {
	switch s {
	case RelationsEmpty:
		return "empty"
	case RelationsParsed:
		return "parsed"
	case RelationsMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("RelationStatus(%d)", int(s))
	}
}

// RelationList is the tagged result of ParseRelationList.
// IDs is non-empty only for RelationsParsed; Err is set only for RelationsMalformed.
type RelationList struct {
	Status RelationStatus
	IDs    []int64
	Raw    string
	Err    error
}

var (
	errNotAList   = errors.New("value is not a list literal")
	errBadElement = errors.New("list element is not an integer")
)

// ParseRelationList reads a list literal of record identifiers such as "[1, 2, 3]".
// Elements may be bare or quoted integers; a trailing comma is allowed and duplicates are
// dropped keeping first occurrence. Anything else (tuples, floats, nested lists, names,
// unbalanced brackets) yields RelationsMalformed.
func ParseRelationList(raw string) RelationList {
	result := RelationList{Raw: raw}

	text := strings.TrimSpace(raw)
	if text == "" {
		result.Status = RelationsEmpty
		return result
	}
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return malformed(result, errNotAList)
	}

	inner := strings.TrimSpace(text[1 : len(text)-1])
	if inner == "" {
		result.Status = RelationsEmpty
		return result
	}
	if strings.ContainsAny(inner, "[]") {
		return malformed(result, errBadElement)
	}

	parts := strings.Split(inner, ",")
	if strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	seen := make(map[int64]struct{}, len(parts))
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := parseIdentifier(strings.TrimSpace(part))
		if err != nil {
			return malformed(result, fmt.Errorf("%w: %q", errBadElement, strings.TrimSpace(part)))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	result.Status = RelationsParsed
	result.IDs = ids
	return result
}

func malformed(result RelationList, err error) RelationList {
	result.Status = RelationsMalformed
	result.IDs = nil
	result.Err = err
	return result
}

func parseIdentifier(token string) (int64, error) {
	if n := len(token); n >= 2 {
		if (token[0] == '\'' && token[n-1] == '\'') || (token[0] == '"' && token[n-1] == '"') {
			token = strings.TrimSpace(token[1 : n-1])
		}
	}
	if token == "" {
		return 0, errBadElement
	}

	digits := strings.TrimLeft(token, "+-")
	if len(token)-len(digits) > 1 {
		return 0, errBadElement
	}
	// decimal literals with a leading zero are not integers in list-literal syntax
	if len(digits) > 1 && digits[0] == '0' && !strings.ContainsAny(digits[1:2], "xXoObB") {
		return 0, errBadElement
	}
	return strconv.ParseInt(token, 0, 64)
}
