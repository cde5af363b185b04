package drive

import (
	"regexp"
	"strings"
)

// LinkKind classifies what a Drive URL points at.
type LinkKind string

const (
	LinkKindFolder LinkKind = "folder"
	LinkKindFile   LinkKind = "file"
)

// LinkRef is a Google Drive object referenced from an email body.
type LinkRef struct {
	ID   string   `json:"id"`
	Kind LinkKind `json:"kind"`
}

// Regular expressions for matching Google Drive URLs. The folder forms
// cover the plain path, the multi-account path and the legacy
// docs.google.com form; open?id= links carry no type information in the
// URL so they resolve as folders first and fall back to files.
var (
	// https://drive.google.com/drive/folders/{folderId}
	folderRegex = regexp.MustCompile(`https?://drive\.google\.com/drive/folders/([a-zA-Z0-9_-]+)`)

	// https://drive.google.com/drive/u/0/folders/{folderId}
	folderUserRegex = regexp.MustCompile(`https?://drive\.google\.com/drive/u/\d+/folders/([a-zA-Z0-9_-]+)`)

	// https://docs.google.com/folder/d/{folderId}
	folderLegacyRegex = regexp.MustCompile(`https?://docs\.google\.com/folder/d/([a-zA-Z0-9_-]+)`)

	// https://drive.google.com/open?id={id}
	openRegex = regexp.MustCompile(`https?://drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`)

	// https://drive.google.com/file/d/{fileId}
	fileRegex = regexp.MustCompile(`https?://drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`)

	// A bare Drive ID pasted without a URL. Anchored to the whole input:
	// email bodies are full of long opaque tokens (tracking links,
	// unsubscribe URLs), so this only fires when the entire text is an ID.
	bareIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{25,40}$`)
)

// ExtractLinks parses Google Drive references from text. Each Drive ID is
// reported once, in order of first appearance; explicit URL patterns take
// precedence over bare-ID matches for kind assignment.
func ExtractLinks(text string) []LinkRef {
	var links []LinkRef
	seen := make(map[string]bool)

	add := func(id string, kind LinkKind) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		links = append(links, LinkRef{ID: id, Kind: kind})
	}

	patterns := []struct {
		regex *regexp.Regexp
		kind  LinkKind
	}{
		{folderRegex, LinkKindFolder},
		{folderUserRegex, LinkKindFolder},
		{folderLegacyRegex, LinkKindFolder},
		{openRegex, LinkKindFolder},
		{fileRegex, LinkKindFile},
	}

	for _, pattern := range patterns {
		for _, match := range pattern.regex.FindAllStringSubmatch(text, -1) {
			if len(match) >= 2 {
				add(match[1], pattern.kind)
			}
		}
	}

	// A bare ID only counts when it is the whole input.
	if id := strings.TrimSpace(text); bareIDRegex.MatchString(id) {
		add(id, LinkKindFolder)
	}

	return links
}
