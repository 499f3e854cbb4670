package drive

import "strings"

// MaxNameLength is the longest folder or file name accepted, in bytes.
const MaxNameLength = 255

// cleanName trims surrounding whitespace and rejects names that cannot be a
// single path segment.
func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", newError(KindInvalidName, "name must not be empty", nil)
	case name == "." || name == "..":
		return "", newError(KindInvalidName, "name must not be . or ..", nil)
	case strings.ContainsAny(name, "/\\\x00"):
		return "", newError(KindInvalidName, "name must not contain slashes", nil)
	case len(name) > MaxNameLength:
		return "", newError(KindInvalidName, "name is too long", nil)
	}
	return name, nil
}

// normalizeID maps an empty optional id to nil.
func normalizeID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}
