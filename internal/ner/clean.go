package ner

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

var commentRE = regexp.MustCompile(`(?s)<!--.*?-->`)

// CleanMarkdown converts Markdown to the plain prose an NER model should
// see: syntax markers, link URLs and raw HTML are gone, the visible text
// remains. The result is whitespace-collapsed and is NOT offset-compatible
// with the input; detections over cleaned text locate entities by name, not
// by span.
func CleanMarkdown(doc string) (string, error) {
	doc = commentRE.ReplaceAllString(doc, " ")

	var rendered bytes.Buffer
	if err := goldmark.Convert([]byte(doc), &rendered); err != nil {
		return "", err
	}

	var b strings.Builder
	tz := html.NewTokenizer(&rendered)
	skipDepth := 0
	for {
		switch tz.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " "), nil
		case html.StartTagToken:
			name, _ := tz.TagName()
			switch string(name) {
			case "code", "pre", "script", "style":
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tz.TagName()
			switch string(name) {
			case "code", "pre", "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tz.Text())
				b.WriteByte(' ')
			}
		}
	}
}
