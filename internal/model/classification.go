package model

import "time"

// Label is the binary outcome assigned to a resolution comment.
type Label string

// Classification labels. These are the only two values the model is allowed
// to produce; anything else is handled through Status instead.
const (
	LabelResolved   Label = "Resolved"
	LabelUnresolved Label = "Unresolved"
)

// Source indicates where a classification came from.
type Source string

// Classification sources.
const (
	SourceCache Source = "cache"
	SourceModel Source = "model"
)

// ClassificationResult is the validated outcome of classifying one record's
// resolution comment. Immutable once produced for a given run.
type ClassificationResult struct {
	ClassifiedAt time.Time
	OrderID      string
	Label        Label
	Source       Source
	RawResponse  string
	Status       Status
	Attempts     int
}

// Classified reports whether the result carries a validated label.
func (r ClassificationResult) Classified() bool {
	return r.Status == StatusResolved || r.Status == StatusUnresolved
}
