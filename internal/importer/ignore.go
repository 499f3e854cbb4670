package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the import root, if present.
const IgnoreFileName = ".driveignore"

// builtinIgnores come first so the ignore file can re-include them.
var builtinIgnores = []string{IgnoreFileName, ".DS_Store", "Thumbs.db"}

// ignoreRule is one compiled .driveignore line.
type ignoreRule struct {
	glob     string
	anchored bool // glob is matched against the whole relative path
	dirOnly  bool // written with a trailing slash
	negate   bool // written with a leading '!'
}

func (r ignoreRule) matches(rel, name string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	subject := name
	if r.anchored {
		subject = rel
	}
	ok, err := path.Match(r.glob, subject)
	return err == nil && ok
}

// IgnoreRules decides which paths an import skips. Rules are evaluated in
// order and the last one that matches wins, so a later "!name" re-includes
// a path an earlier rule excluded.
type IgnoreRules []ignoreRule

// CompileIgnoreRules parses pattern lines. Blank lines, comments and
// malformed globs are dropped. A pattern containing '/' (other than a
// trailing one) is anchored to the import root; any other pattern matches
// a base name at any depth.
func CompileIgnoreRules(lines ...[]string) IgnoreRules {
	var rules IgnoreRules
	for _, group := range lines {
		for _, line := range group {
			if r, ok := compileRule(line); ok {
				rules = append(rules, r)
			}
		}
	}
	return rules
}

func compileRule(line string) (ignoreRule, bool) {
	s := strings.TrimSpace(line)
	if s == "" || s[0] == '#' {
		return ignoreRule{}, false
	}
	var r ignoreRule
	if s[0] == '!' {
		r.negate = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "/") {
		r.dirOnly = true
		s = strings.TrimRight(s, "/")
	}
	if strings.Contains(s, "/") {
		r.anchored = true
		s = strings.TrimPrefix(s, "/")
	}
	if s == "" {
		return ignoreRule{}, false
	}
	if _, err := path.Match(s, ""); err != nil {
		return ignoreRule{}, false
	}
	r.glob = s
	return r, true
}

// Skips reports whether rel, a path relative to the import root, is
// ignored. Skipping a directory prunes everything beneath it.
func (rs IgnoreRules) Skips(rel string, isDir bool) bool {
	if rel == "" || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	name := path.Base(rel)

	skip := false
	for _, r := range rs {
		if r.matches(rel, name, isDir) {
			skip = !r.negate
		}
	}
	return skip
}

// ReadIgnoreFile returns the lines of an ignore file, or nil if it does
// not exist.
func ReadIgnoreFile(name string) ([]string, error) {
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), nil
}
