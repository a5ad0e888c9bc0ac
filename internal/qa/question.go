// Package qa turns a natural-language question into a structured intent and
// answers it from the cached member messages.
package qa

// Intent names the template a question matched.
type Intent string

// Intent values, in parser priority order.
const (
	IntentWhenTrip     Intent = "when_trip"
	IntentHowMany      Intent = "how_many"
	IntentWhatFavorite Intent = "what_favorite"
	IntentWhatPrefer   Intent = "what_prefer"
	IntentDoesHave     Intent = "does_have"
	IntentUnknown      Intent = "unknown"
)

// Question is a parsed question. The concrete types below are the only
// implementations.
type Question interface {
	Intent() Intent
	// UserName is the member the question is about, empty for Unknown.
	UserName() string
	question()
}

// WhenTrip asks when a member travels to a location.
type WhenTrip struct {
	User     string
	Location string
}

// HowMany asks for a count of something a member has.
type HowMany struct {
	Subject string
	User    string
}

// WhatFavorite asks for a member's favorite items in a category.
type WhatFavorite struct {
	User     string
	Category string
}

// WhatPrefer asks for a member's stated preferences.
type WhatPrefer struct {
	User string
}

// DoesHave asks whether a member has something.
type DoesHave struct {
	User    string
	Subject string
}

// Unknown is any question no template matched.
type Unknown struct{}

func (WhenTrip) Intent() Intent     { return IntentWhenTrip }
func (HowMany) Intent() Intent      { return IntentHowMany }
func (WhatFavorite) Intent() Intent { return IntentWhatFavorite }
func (WhatPrefer) Intent() Intent   { return IntentWhatPrefer }
func (DoesHave) Intent() Intent     { return IntentDoesHave }
func (Unknown) Intent() Intent      { return IntentUnknown }

func (q WhenTrip) UserName() string     { return q.User }
func (q HowMany) UserName() string      { return q.User }
func (q WhatFavorite) UserName() string { return q.User }
func (q WhatPrefer) UserName() string   { return q.User }
func (q DoesHave) UserName() string     { return q.User }
func (Unknown) UserName() string        { return "" }

func (WhenTrip) question()     {}
func (HowMany) question()      {}
func (WhatFavorite) question() {}
func (WhatPrefer) question()   {}
func (DoesHave) question()     {}
func (Unknown) question()      {}
