// Package mail harvests e-mail addresses written in the anti-scraping form
// "jane[dot]doe[at]example[dot]com".
package mail

import (
	"regexp"
	"strings"
)

// Obfuscation tokens standing in for '@' and '.'.
const (
	AtToken  = "[at]"
	DotToken = "[dot]"
)

var obfuscatedPattern = regexp.MustCompile(`(?:[-\p{L}\p{N}_]+\[dot\])*[-\p{L}\p{N}_]+\[at\][-\p{L}\p{N}_]+(?:\[dot\][-\p{L}\p{N}_]+)+`)

var deobfuscator = strings.NewReplacer(AtToken, "@", DotToken, ".")

// ExtractObfuscated returns every obfuscated address in text with the tokens
// substituted back, in order of appearance. Duplicates are kept.
func ExtractObfuscated(text string) []string {
	matches := obfuscatedPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(matches))
	for _, m := range matches {
		addrs = append(addrs, deobfuscator.Replace(m))
	}
	return addrs
}

// Unique drops repeated addresses, compared case-insensitively, keeping the first spelling.
func Unique(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
