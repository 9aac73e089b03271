package export

import (
	"regexp"
	"strings"
)

const (
	filenameMaxRunes = 50
	fallbackName     = "untitled"
	// NoDocumentFilename is used when there is no active document.
	NoDocumentFilename = "memo.md"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// sanitizeFilename removes characters that are invalid in file names on
// common platforms and joins words with underscores.
func sanitizeFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, title)
	name = whitespaceRun.ReplaceAllString(name, "_")
	if runes := []rune(name); len(runes) > filenameMaxRunes {
		name = string(runes[:filenameMaxRunes])
	}
	if name == "" {
		return fallbackName
	}
	return name
}

// MarkdownFilename is the download name for a memo with the given title.
func MarkdownFilename(title string) string {
	return sanitizeFilename(title) + ".md"
}

func filenameFor(title string, format Format) string {
	if title == "" && format == FormatMarkdown {
		return NoDocumentFilename
	}
	return sanitizeFilename(title) + "." + string(format)
}
