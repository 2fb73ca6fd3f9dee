package models

import "time"

// Course represents a training course offered by the institute.
//
// Duration is free text following the informal grammar "<n> day|week|month|year"
// (singular or plural). It is only interpreted by the completion calculator;
// any other text means the course has no fixed end date.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Duration    string    `db:"duration" json:"duration"`
	Level       string    `db:"level" json:"level"`
	Syllabus    string    `db:"syllabus" json:"syllabus"`
	FeeAmount   float64   `db:"fee_amount" json:"fee_amount"`
	Published   bool      `db:"published" json:"published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Search        string
	Level         string
	PublishedOnly bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
