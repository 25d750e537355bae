package helper

import (
	"strings"
	"unicode"
)

func IsAllDigits(s string) bool {
	if s == "" {
		return false
	} // end if
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		} // end if
	} // end for
	return true
} // end IsAllDigits()

// splits "addr?query" into its two halves; either may be empty
func SplitAddrAndQuery(s string) (string, string) {
	addr, query, _ := strings.Cut(s, "?")
	if !strings.Contains(s, "?") && strings.Contains(s, "=") {
		return "", s
	} // end if
	return addr, query
} // end SplitAddrAndQuery()
