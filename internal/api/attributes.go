package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Attribute selection errors.
var (
	ErrInvalidAttributes = errors.New("attributes must be a comma-separated string or a range of strings")
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrAttributeNotValue = errors.New("attribute is not a scalar value")
)

// AttributeSource tags where an AttributeList came from.
type AttributeSource int

const (
	SourceList  AttributeSource = iota // comma-separated string
	SourceRange                        // 2D range of cells, read row by row
)

// AttributeList is a resolved list of ticker field paths such as
// "mark_price" or "greeks.delta".
type AttributeList struct {
	Source AttributeSource
	Names  []string
}

// AttributesFromString splits a comma-separated list. Blank items are
// skipped and surrounding spaces trimmed.
func AttributesFromString(s string) AttributeList {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return AttributeList{Source: SourceList, Names: names}
}

// AttributesFromRange flattens a range row by row, skipping blank cells.
func AttributesFromRange(rows [][]string) AttributeList {
	var names []string
	for _, row := range rows {
		for _, cell := range row {
			if cell = strings.TrimSpace(cell); cell != "" {
				names = append(names, cell)
			}
		}
	}
	return AttributeList{Source: SourceRange, Names: names}
}

// ParseAttributes resolves a loosely typed argument into an AttributeList.
// It accepts string, []string and [][]string; anything else is rejected.
func ParseAttributes(v any) (AttributeList, error) {
	switch a := v.(type) {
	case string:
		return AttributesFromString(a), nil
	case []string:
		return AttributesFromRange([][]string{a}), nil
	case [][]string:
		return AttributesFromRange(a), nil
	default:
		return AttributeList{}, fmt.Errorf("%w: got %T", ErrInvalidAttributes, v)
	}
}

// Len returns the number of attributes.
func (a AttributeList) Len() int {
	return len(a.Names)
}

// String joins the names with commas. It is stable and usable in keys.
func (a AttributeList) String() string {
	return strings.Join(a.Names, ",")
}

// SelectAttributes picks one scalar per attribute from a raw ticker
// result, in order. Paths are dotted object keys; a numeric segment
// indexes an array. Numbers come back as float64, null as nil.
func SelectAttributes(raw json.RawMessage, attrs AttributeList) ([]any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode ticker: %w", err)
	}

	values := make([]any, len(attrs.Names))
	for i, name := range attrs.Names {
		v, err := valueByPath(doc, name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func valueByPath(doc any, path string) (any, error) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrAttributeNotFound, path)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("%w: %s", ErrAttributeNotFound, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("%w: %s", ErrAttributeNotFound, path)
		}
	}

	switch cur.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("%w: %s", ErrAttributeNotValue, path)
	}
	return cur, nil
}
