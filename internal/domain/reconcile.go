package domain

import "github.com/google/uuid"

// Drift reports a cached counter that disagrees with the value derived from
// the underlying records.
type Drift struct {
	Counter  string    `json:"counter"`
	EntityID uuid.UUID `json:"entityId"`
	Stored   int       `json:"stored"`
	Actual   int       `json:"actual"`
}

const (
	CounterCategoryTopics   = "category_topics_count"
	CounterResourceComments = "resource_comment_count"
	CounterCommenters       = "resource_commenters"
)
