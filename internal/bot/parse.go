package bot

import (
	"strings"
	"unicode"
)

var fillerWords = map[string]bool{
	"please": true, "plz": true, "me": true, "track": true, "song": true,
}

// parseCommand recognises "/cmd@bot args" and the bare keywords "find" and "random"
func parseCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], strings.TrimSpace(text[i:])
	}

	if strings.HasPrefix(head, "/") {
		name, _, _ := strings.Cut(head[1:], "@")
		return strings.ToLower(name), rest
	}

	switch strings.ToLower(head) {
	case "find", "random":
		return strings.ToLower(head), rest
	}
	return "", ""
}

// extractQuery drops leading filler such as "please find me song ..."
func extractQuery(args string) string {
	words := strings.Fields(args)
	for len(words) > 0 && fillerWords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
