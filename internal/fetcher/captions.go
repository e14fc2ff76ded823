package fetcher

import (
	"regexp"
	"strings"
)

var (
	cueTagPattern = regexp.MustCompile(`<[^>]+>`)
	cueNumberLine = regexp.MustCompile(`^\d+$`)
	spacesPattern = regexp.MustCompile(`\s+`)
)

// parseSubtitleList extracts language codes from the "Available subtitles" section
// of yt-dlp --list-subs output. Automatic captions are ignored.
func parseSubtitleList(out string) []string {
	var languages []string
	inSection := false

	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.Contains(line, "Available subtitles for"):
			inSection = true
			continue
		case strings.HasPrefix(line, "["), strings.Contains(line, "has no subtitles"):
			inSection = false
			continue
		case !inSection, line == "", strings.HasPrefix(line, "Language"):
			continue
		}

		fields := strings.Fields(line)
		languages = append(languages, fields[0])
	}
	return languages
}

// chooseLanguage prefers the first non-English track
func chooseLanguage(languages []string) string {
	for _, lang := range languages {
		if !isEnglish(lang) {
			return lang
		}
	}
	if len(languages) > 0 {
		return languages[0]
	}
	return ""
}

func isEnglish(lang string) bool {
	l := strings.ToLower(lang)
	return l == "en" || l == "eng" || strings.HasPrefix(l, "en-") || strings.HasPrefix(l, "eng-")
}

// StripVTT flattens a WebVTT document to its spoken text, one cue per line
func StripVTT(doc string) string {
	var lines []string
	skipBlock := false

	for _, raw := range strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			skipBlock = false
			continue
		case skipBlock:
			continue
		case strings.HasPrefix(line, "WEBVTT"), strings.HasPrefix(line, "Kind:"), strings.HasPrefix(line, "Language:"):
			continue
		case strings.HasPrefix(line, "NOTE"), strings.HasPrefix(line, "STYLE"), strings.HasPrefix(line, "REGION"):
			skipBlock = true
			continue
		case strings.Contains(line, "-->"), cueNumberLine.MatchString(line):
			continue
		}

		text := strings.TrimSpace(spacesPattern.ReplaceAllString(cueTagPattern.ReplaceAllString(line, ""), " "))
		if text == "" {
			continue
		}
		if n := len(lines); n > 0 && lines[n-1] == text {
			continue
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}
