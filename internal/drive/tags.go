package drive

import (
	"path"
	"strings"
)

// Tagger derives descriptive tags for an uploaded file.
type Tagger interface {
	Tags(name, mimeType string) []string
}

// RuleTagger tags files from their MIME type and extension.
type RuleTagger struct{}

func categoryOf(mimeType string) string {
	switch mimeType {
	case "application/pdf", "application/msword", "application/rtf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text":
		return "document"
	case "application/vnd.ms-excel", "text/csv",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "spreadsheet"
	case "application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return "presentation"
	case "application/zip", "application/gzip", "application/x-tar",
		"application/x-7z-compressed", "application/x-rar-compressed":
		return "archive"
	case "application/json", "application/xml", "text/xml":
		return "data"
	}
	return ""
}

// Tags returns, in order: the MIME family, a category, and the lowercased
// extension. Duplicates are dropped.
func (RuleTagger) Tags(name, mimeType string) []string {
	var tags []string
	add := func(tag string) {
		if tag == "" {
			return
		}
		for _, t := range tags {
			if t == tag {
				return
			}
		}
		tags = append(tags, tag)
	}

	family, _, _ := strings.Cut(mimeType, "/")
	if family != "application" {
		add(family)
	}

	switch category := categoryOf(mimeType); {
	case category != "":
		add(category)
	case family == "text":
		add("document")
	case family == "image":
		add("photo")
	case family == "audio", family == "video":
		add("media")
	default:
		add("binary")
	}

	add(strings.TrimPrefix(strings.ToLower(path.Ext(name)), "."))
	return tags
}
