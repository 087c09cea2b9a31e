package domain

import "strings"

// MatchCandidate is a proposed correlation between a sports-feed event and a
// Polymarket event. It is an immutable value object; identity is Key().
type MatchCandidate struct {
	SourceTitle string
	TargetTitle string
	TargetID    string
	Score       int
}

// Key returns the registry identity for the pair: the normalized source title
// joined with the target event id.
func (c MatchCandidate) Key() string {
	return NormalizeTitle(c.SourceTitle) + "::" + c.TargetID
}

// NormalizeTitle lowercases a title and collapses all whitespace runs to a
// single space.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
