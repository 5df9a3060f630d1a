package speech

import (
	"encoding/xml"
	"regexp"
	"strings"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// BuildSSML wraps text in a single-voice SSML document.
func BuildSSML(text, voice, language string) (string, error) {
	var body strings.Builder

	body.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="`)

	err := xml.EscapeText(&body, []byte(language))
	if err != nil {
		return "", err
	}

	body.WriteString(`"><voice name="`)

	err = xml.EscapeText(&body, []byte(voice))
	if err != nil {
		return "", err
	}

	body.WriteString(`">`)

	err = xml.EscapeText(&body, []byte(normalizeWhitespace(text)))
	if err != nil {
		return "", err
	}

	body.WriteString(`</voice></speak>`)

	return body.String(), nil
}

func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
