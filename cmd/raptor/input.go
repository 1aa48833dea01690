package main

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/raptor-search/go-raptor/index"
)

const maxLineSize = 16 * 1024 * 1024

// ReadEntries parses the build input. Each non-blank line is
//
//	key<TAB>id,id,...
//
// Repeated keys are merged, their ids are concatenated in input order.
// The result is sorted by key.
func ReadEntries(r io.Reader, lowercase bool) ([]index.Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var entries []index.Entry
	positions := make(map[string]int)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, ids, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, errors.Errorf("line %d: missing tab after the key", lineno)
		}
		if !utf8.ValidString(key) {
			return nil, errors.Errorf("line %d: key is not valid UTF-8", lineno)
		}
		if lowercase {
			key = strings.ToLower(key)
		}
		values, err := parseIDs(ids)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}
		if i, ok := positions[key]; ok {
			entries[i].Values = append(entries[i].Values, values...)
			continue
		}
		positions[key] = len(entries)
		entries = append(entries, index.Entry{Key: key, Values: values})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read input")
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func parseIDs(s string) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	values := make([]uint64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid id %q", part)
		}
		values = append(values, v)
	}
	return values, nil
}
