package youtube

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

var symbols = "1234567890!@#$%^&*()-=_+[]{};\"|;'\\<>?/.,~`"

// Upload-title vocabulary that carries no information about the
// recording itself.
var guffWords = []string{
	"official", "video", "videoclip", "music", "audio", "lyric", "lyrics",
	"visualizer", "visualiser", "hd", "hq", "4k", "premiere", "teaser",
	"trailer", "mv", "m/v", "full", "album", "stream", "out now", "live",
	"session", "remastered", "remaster", "explicit", "clean", "edit",
	"radio", "extended", "version", "ver", "sub", "subtitulado",
}

// TitleCleaner strips upload guff from video titles so the normalized
// track model carries the recording title, not the upload headline.
type TitleCleaner struct {
	titleExpressions []*regexp2.Regexp
	yearExpr         *regexp2.Regexp
}

func NewTitleCleaner() *TitleCleaner {
	patterns := []string{
		`(?<title>.+?)\s+(?<enclosed>\(.+\)|\[.+\]|\{.+\}|\<.+\>)$`,
		`(?<title>.+?)\s+?(?<feat>[\[\(]?(?:feat(?:uring)?|ft)\b\.?)\s*?(?<artists>.+)\s*`,
		`(?<title>.+?)(?:\s+?[\u2010\u2012\u2013\u2014~|]+)(?![^(]*\))(?<tail>.*)`,
	}

	compiled := make([]*regexp2.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp2.MustCompile(`(?i)`+pattern, 0))
	}

	return &TitleCleaner{
		titleExpressions: compiled,
		yearExpr:         regexp2.MustCompile(`(20[0-9]{2}|19[0-9]{2})`, 0),
	}
}

// isLikelyGuff reports whether a stripped segment is upload decoration
// rather than part of the title.
func (tc *TitleCleaner) isLikelyGuff(segment string) bool {
	s := strings.ToLower(segment)
	beforeLen := utf8.RuneCountInString(s)

	for _, guff := range guffWords {
		s = strings.ReplaceAll(s, guff, "")
	}

	s, _ = tc.yearExpr.Replace(s, "", -1, -1)
	afterLen := utf8.RuneCountInString(s)
	replaced := beforeLen - afterLen

	chars := 0
	guffChars := replaced
	for _, ch := range s {
		if strings.ContainsRune(symbols, ch) {
			guffChars++
		}
		if unicode.IsLetter(ch) {
			chars++
		}
	}

	return guffChars > chars
}

// balanced reports whether every bracket pair in text is matched; an
// unbalanced title is left alone rather than half-stripped.
func (tc *TitleCleaner) balanced(text string) bool {
	brackets := []struct {
		open, close rune
	}{
		{'(', ')'}, {'[', ']'}, {'{', '}'}, {'<', '>'},
	}
	for _, pair := range brackets {
		if strings.Count(text, string(pair.open)) != strings.Count(text, string(pair.close)) {
			return false
		}
	}
	return true
}

// Clean strips guff segments from a video title. Titles it cannot
// confidently improve come back unchanged.
func (tc *TitleCleaner) Clean(text string) string {
	text = strings.TrimSpace(text)

	if !tc.balanced(text) {
		return text
	}

	for changed := true; changed; {
		changed = false
		for _, expr := range tc.titleExpressions {
			match, _ := expr.FindStringMatch(text)
			if match == nil {
				continue
			}

			groups := make(map[string]string)
			for _, name := range expr.GetGroupNames() {
				groups[name] = strings.TrimSpace(match.GroupByName(name).String())
			}

			if enclosed := groups["enclosed"]; enclosed != "" && tc.isLikelyGuff(enclosed) {
				text = groups["title"]
				changed = true
				break
			}

			if feat := groups["feat"]; feat != "" {
				text = groups["title"]
				changed = true
				break
			}

			if tail := groups["tail"]; tail != "" && tc.isLikelyGuff(tail) {
				text = groups["title"]
				changed = true
				break
			}
		}
	}

	return strings.TrimSpace(text)
}
