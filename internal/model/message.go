package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// Message is a single chat message as served by the upstream messages API.
type Message struct {
	ID        string `json:"id" yaml:"id"`
	UserID    string `json:"user_id" yaml:"user_id"`
	UserName  string `json:"user_name" yaml:"user_name"`
	Timestamp string `json:"timestamp" yaml:"timestamp"` // ISO 8601
	Message   string `json:"message" yaml:"message"`
}

// MessagePage is one batch returned by GET /messages/?skip=&limit=.
type MessagePage struct {
	Total int       `json:"total"`
	Items []Message `json:"items"`
}

// Fold returns the case-folded form of s used for case-insensitive matching.
// A Caser is stateful, so a fresh one is built per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr occurs in s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// FilterByUserName returns messages whose user_name contains name, ignoring
// case. The name is trimmed first. Order is preserved.
func FilterByUserName(msgs []Message, name string) []Message {
	needle := Fold(strings.TrimSpace(name))
	var result []Message
	for _, m := range msgs {
		if strings.Contains(Fold(m.UserName), needle) {
			result = append(result, m)
		}
	}
	return result
}

// FilterByText returns messages whose body contains query, ignoring case.
// The query is trimmed first. Order is preserved.
func FilterByText(msgs []Message, query string) []Message {
	needle := Fold(strings.TrimSpace(query))
	var result []Message
	for _, m := range msgs {
		if strings.Contains(Fold(m.Message), needle) {
			result = append(result, m)
		}
	}
	return result
}

// FilterByUserID returns messages whose user_id equals id exactly.
func FilterByUserID(msgs []Message, id string) []Message {
	var result []Message
	for _, m := range msgs {
		if m.UserID == id {
			result = append(result, m)
		}
	}
	return result
}
