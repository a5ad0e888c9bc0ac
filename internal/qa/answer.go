package qa

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sells-group/aurora-qa/internal/model"
)

// GuidanceAnswer is returned for questions the synthesizer does not resolve.
const GuidanceAnswer = "I'm not sure how to answer that question. Please try rephrasing it, such as: 'When is [Name] planning their trip to [Location]?' or 'How many [things] does [Name] have?'"

const maxListed = 3

var (
	tripKeywords     = []string{"trip", "travel", "visit", "fly", "book"}
	favoriteKeywords = []string{"favorite", "prefer", "love", "like"}
	preferKeywords   = []string{"prefer", "preference"}
)

// Answer builds a plain-text answer to q from the full message set. It never
// fails: every branch degrades to quoting the source message.
func Answer(q Question, all []model.Message) string {
	switch q.(type) {
	case DoesHave, Unknown:
		return GuidanceAnswer
	}

	user := q.UserName()
	msgs := model.FilterByUserName(all, user)
	if len(msgs) == 0 {
		return fmt.Sprintf("I couldn't find any information about %s.", user)
	}

	switch q := q.(type) {
	case WhenTrip:
		return answerWhenTrip(q, msgs)
	case HowMany:
		return answerHowMany(q, msgs)
	case WhatFavorite:
		return answerWhatFavorite(q, msgs)
	case WhatPrefer:
		return answerWhatPrefer(q, msgs)
	}
	return GuidanceAnswer
}

func answerWhenTrip(q WhenTrip, msgs []model.Message) string {
	for _, m := range msgs {
		if !model.ContainsFold(m.Message, q.Location) || !containsAny(m.Message, tripKeywords...) {
			continue
		}
		if phrase, ok := temporalPhrase(m.Message); ok {
			return fmt.Sprintf("%s is planning a trip to %s %s.", q.User, q.Location, phrase)
		}
		return fmt.Sprintf("%s has mentioned plans to visit %s. Details: \"%s\"", q.User, q.Location, m.Message)
	}
	return fmt.Sprintf("I couldn't find any trip plans to %s for %s.", q.Location, q.User)
}

// answerHowMany reports the largest numeral stated in any matching message.
func answerHowMany(q HowMany, msgs []model.Message) string {
	relevant := model.FilterByText(msgs, q.Subject)
	if len(relevant) == 0 {
		return fmt.Sprintf("I couldn't find any information about %s for %s.", q.Subject, q.User)
	}

	var found []int
	for _, m := range relevant {
		found = append(found, numerals(m.Message)...)
	}
	if len(found) > 0 {
		return fmt.Sprintf("%s has %d %s.", q.User, slices.Max(found), q.Subject)
	}
	return fmt.Sprintf("I found mentions of %s for %s, but couldn't determine an exact count. Here's what I found: \"%s\"",
		q.Subject, q.User, relevant[0].Message)
}

func answerWhatFavorite(q WhatFavorite, msgs []model.Message) string {
	var matching []model.Message
	for _, m := range msgs {
		if model.ContainsFold(m.Message, q.Category) && containsAny(m.Message, favoriteKeywords...) {
			matching = append(matching, m)
		}
	}
	if len(matching) == 0 {
		return fmt.Sprintf("I couldn't find any information about %s's favorite %s.", q.User, q.Category)
	}

	// Spans are extracted per message so they never join across bodies.
	var names []string
	for _, m := range matching {
		names = append(names, properNouns(m.Message, q.User)...)
	}
	names = dedupe(names)
	if len(names) > 0 {
		if len(names) > maxListed {
			names = names[:maxListed]
		}
		return fmt.Sprintf("%s's favorite %s include: %s.", q.User, q.Category, strings.Join(names, ", "))
	}
	return fmt.Sprintf("%s has mentioned preferences for %s. Here's what I found: \"%s\"", q.User, q.Category, matching[0].Message)
}

func answerWhatPrefer(q WhatPrefer, msgs []model.Message) string {
	var prefs []string
	for _, m := range msgs {
		if containsAny(m.Message, preferKeywords...) {
			prefs = append(prefs, m.Message)
			if len(prefs) == maxListed {
				break
			}
		}
	}
	if len(prefs) == 0 {
		return fmt.Sprintf("I couldn't find any preference information for %s.", q.User)
	}
	return fmt.Sprintf("%s's preferences include: %s", q.User, strings.Join(prefs, "; "))
}
