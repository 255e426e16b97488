package util

import (
	"net/url"
	"regexp"
	"strings"
)

var reUUID = regexp.MustCompile(`(?i)^([a-f\d]{8}(-[a-f\d]{4}){3}-[a-f\d]{12}?)$`)

// dereferenceableSchemes are the URL schemes the external content
// resolver knows how to fetch.
var dereferenceableSchemes = []string{"http", "https", "file"}

// Returns true if rawurl is an absolute http or https URL with a host.
func LooksLikeURL(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Returns true if uri is something we can fetch content from:
// an http, https or file URL.
func IsDereferenceable(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil || !StringListContains(dereferenceableSchemes, strings.ToLower(u.Scheme)) {
		return false
	}
	if u.Scheme == "file" {
		return u.Path != ""
	}
	return u.Host != ""
}

func LooksLikeUUID(uuid string) bool {
	return reUUID.MatchString(uuid)
}

// Cleans a string we might find a config file, trimming leading
// and trailing spaces, single quotes and double quoted. Note that
// leading and trailing spaces inside the quotes are not trimmed.
func CleanString(str string) string {
	cleanStr := strings.TrimSpace(str)
	// Strip leading and traling quotes, but only if string has matching
	// quotes at both ends.
	if len(cleanStr) > 1 && (strings.HasPrefix(cleanStr, "'") && strings.HasSuffix(cleanStr, "'") ||
		strings.HasPrefix(cleanStr, "\"") && strings.HasSuffix(cleanStr, "\"")) {
		return cleanStr[1 : len(cleanStr)-1]
	}
	return cleanStr
}

// Returns true if the list of strings contains item.
func StringListContains(list []string, item string) bool {
	for i := range list {
		if list[i] == item {
			return true
		}
	}
	return false
}

// UniqueStrings returns the items in list with duplicates removed,
// keeping the first occurrence of each.
func UniqueStrings(list []string) []string {
	seen := make(map[string]bool, len(list))
	unique := make([]string, 0, len(list))
	for _, item := range list {
		if !seen[item] {
			seen[item] = true
			unique = append(unique, item)
		}
	}
	return unique
}
