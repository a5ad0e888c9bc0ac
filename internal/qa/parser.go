package qa

import (
	"regexp"
	"strings"
)

// Pattern is one question template. Build receives the regexp submatches
// (index 0 is the whole match) and returns the parsed question.
type Pattern struct {
	Intent Intent
	Regexp *regexp.Regexp
	Build  func(groups []string) Question
}

var defaultPatterns = []Pattern{
	{
		Intent: IntentWhenTrip,
		Regexp: regexp.MustCompile(`(?i)when\s+(?:is|does)\s+([a-zA-Z\s]+?)\s+(?:planning|going|traveling|visiting|flying|trip).*?(?:to|in)\s+([a-zA-Z\s]+)`),
		Build: func(g []string) Question {
			return WhenTrip{User: slot(g[1]), Location: slot(g[2])}
		},
	},
	{
		Intent: IntentHowMany,
		Regexp: regexp.MustCompile(`(?i)how\s+many\s+([a-zA-Z\s]+?)\s+(?:does|do)\s+([a-zA-Z\s]+?)\s+have`),
		Build: func(g []string) Question {
			return HowMany{Subject: slot(g[1]), User: slot(g[2])}
		},
	},
	{
		Intent: IntentWhatFavorite,
		Regexp: regexp.MustCompile(`(?i)what\s+(?:are|is)\s+([a-zA-Z\s]+?)(?:'s|s)\s+favorite\s+([a-zA-Z\s]+)`),
		Build: func(g []string) Question {
			return WhatFavorite{User: slot(g[1]), Category: slot(g[2])}
		},
	},
	{
		Intent: IntentWhatPrefer,
		Regexp: regexp.MustCompile(`(?i)what\s+(?:does|do)\s+([a-zA-Z\s]+?)\s+prefer`),
		Build: func(g []string) Question {
			return WhatPrefer{User: slot(g[1])}
		},
	},
	{
		Intent: IntentDoesHave,
		Regexp: regexp.MustCompile(`(?i)does\s+([a-zA-Z\s]+?)\s+have\s+([a-zA-Z\s]+)`),
		Build: func(g []string) Question {
			return DoesHave{User: slot(g[1]), Subject: slot(g[2])}
		},
	},
}

// DefaultPatterns returns a copy of the built-in template table in priority
// order: when_trip, how_many, what_favorite, what_prefer, does_have.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, len(defaultPatterns))
	copy(out, defaultPatterns)
	return out
}

// Parser matches questions against an ordered template table.
type Parser struct {
	patterns []Pattern
}

// NewParser creates a parser over patterns, or over DefaultPatterns when none
// are given.
func NewParser(patterns ...Pattern) *Parser {
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	return &Parser{patterns: patterns}
}

// Parse returns the question built by the first matching template, or
// Unknown when none match.
func (p *Parser) Parse(question string) Question {
	for _, pat := range p.patterns {
		if g := pat.Regexp.FindStringSubmatch(question); g != nil {
			return pat.Build(g)
		}
	}
	return Unknown{}
}

func slot(s string) string {
	return strings.TrimSpace(s)
}
