package lxcconf

import "strings"

// FeaturesKey is the conf-file key holding the comma-separated feature
// flag list, e.g. "nesting=1,fuse=1,keyctl=1".
const FeaturesKey = "features"

// RemoveFeature drops the named feature from a comma-separated feature
// list, preserving every other flag verbatim and in order.
func RemoveFeature(features, name string) string {
	if features == "" {
		return ""
	}
	parts := strings.Split(features, ",")
	kept := parts[:0]
	for _, p := range parts {
		flag := strings.TrimSpace(p)
		if flag == "" {
			continue
		}
		if key, _, _ := strings.Cut(flag, "="); key == name {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ",")
}

// HasFeature reports whether the named feature appears in the list with a
// non-zero value.
func HasFeature(features, name string) bool {
	for _, p := range strings.Split(features, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if key != name {
			continue
		}
		if !ok {
			return true
		}
		return value != "0" && value != ""
	}
	return false
}

// Features returns the feature flag list of the file, or "" when unset.
func (f *File) Features() string {
	v, _ := f.Get(FeaturesKey)
	return v
}

// SetFeatures replaces the feature flag list. An empty list removes the
// entry entirely.
func (f *File) SetFeatures(features string) {
	if features == "" {
		f.RemoveIf(func(e Entry) bool { return e.Key == FeaturesKey })
		return
	}
	f.Set(FeaturesKey, features)
}
