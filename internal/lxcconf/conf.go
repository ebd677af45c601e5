// Package lxcconf reads and rewrites the persisted container configuration
// file (/etc/pve/lxc/<id>.conf) as structured entries instead of regex
// edits. The whole file is parsed, transformed in memory, and written back
// in one shot.
package lxcconf

import (
	"strings"
)

// Entry is a single "key: value" line.
type Entry struct {
	Key   string
	Value string
}

// line is one parsed line of the file. Exactly one of entry/raw is used.
type line struct {
	entry *Entry
	raw   string
}

// File is a parsed container configuration file. Comments, blank lines and
// snapshot sections are preserved verbatim; entries in snapshot sections
// (after a "[name]" header) are never modified.
type File struct {
	lines     []line
	inSection bool
}

// Parse parses the raw file contents.
func Parse(data []byte) *File {
	f := &File{}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return f
	}

	inSection := false
	for _, l := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "[") {
			inSection = true
		}
		if inSection || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			f.lines = append(f.lines, line{raw: l})
			continue
		}
		key, value, ok := strings.Cut(l, ":")
		if !ok {
			f.lines = append(f.lines, line{raw: l})
			continue
		}
		f.lines = append(f.lines, line{entry: &Entry{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		}})
	}
	return f
}

// Serialize renders the file back to bytes, ending with a newline.
func (f *File) Serialize() []byte {
	var b strings.Builder
	for _, l := range f.lines {
		if l.entry != nil {
			b.WriteString(l.entry.Key)
			b.WriteString(": ")
			b.WriteString(l.entry.Value)
		} else {
			b.WriteString(l.raw)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// Get returns the value of the first entry with the given key.
func (f *File) Get(key string) (string, bool) {
	for _, l := range f.lines {
		if l.entry != nil && l.entry.Key == key {
			return l.entry.Value, true
		}
	}
	return "", false
}

// Set replaces the value of the first entry with the given key, or appends
// a new entry when the key is absent.
func (f *File) Set(key, value string) {
	for _, l := range f.lines {
		if l.entry != nil && l.entry.Key == key {
			l.entry.Value = value
			return
		}
	}
	f.Append(key, value)
}

// Append adds a new entry at the end of the main section, before any
// snapshot section.
func (f *File) Append(key, value string) {
	e := line{entry: &Entry{Key: key, Value: value}}
	for i, l := range f.lines {
		trimmed := strings.TrimSpace(l.raw)
		if l.entry == nil && strings.HasPrefix(trimmed, "[") {
			f.lines = append(f.lines[:i], append([]line{e}, f.lines[i:]...)...)
			return
		}
	}
	f.lines = append(f.lines, e)
}

// RemoveIf deletes every entry for which pred returns true and reports how
// many entries were removed.
func (f *File) RemoveIf(pred func(Entry) bool) int {
	kept := f.lines[:0]
	removed := 0
	for _, l := range f.lines {
		if l.entry != nil && pred(*l.entry) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	f.lines = kept
	return removed
}

// Entries returns all entries with the given key, in file order.
func (f *File) Entries(key string) []Entry {
	var out []Entry
	for _, l := range f.lines {
		if l.entry != nil && l.entry.Key == key {
			out = append(out, *l.entry)
		}
	}
	return out
}
