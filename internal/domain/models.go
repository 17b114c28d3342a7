package domain

import "time"

// User is the identity resolved from a verified phone number.
type User struct {
	ID          string    `json:"id"`
	Phone       string    `json:"phone"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Option is one of the two choices offered by a proposition.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Proposition is a sheet question. AnswerID is nil until the proposition is graded.
type Proposition struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt,omitempty"`
	Options  []Option `json:"options,omitempty"`
	AnswerID *string  `json:"answerId"`
}

// Selection records the option a submission picked for one proposition.
type Selection struct {
	PropositionID string `json:"propositionId"`
	OptionID      string `json:"optionId"`
}

// Submission is a participant's set of picks plus the numeric tie-breaker guess.
type Submission struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId,omitempty"`
	TieBreaker *float64    `json:"tieBreaker,omitempty"`
	Selections []Selection `json:"selections"`
}

// SheetSnapshot is everything the ranking needs to place submissions of one sheet.
type SheetSnapshot struct {
	SheetID      string        `json:"sheetId"`
	Propositions []Proposition `json:"propositions"`
	Submissions  []Submission  `json:"submissions"`
}

// Placement is the projection of a submission within its sheet. Never stored.
type Placement struct {
	CorrectCount int `json:"correctCount"`
	TieCount     int `json:"tieCount"`
	Rank         int `json:"rank"`
}

// Standing is one leaderboard row.
type Standing struct {
	SubmissionID string `json:"submissionId"`
	UserID       string `json:"userId,omitempty"`
	Placement
	TieBreaker *float64 `json:"tieBreaker,omitempty"`
}

// Leaderboard captures the ordered standings for a sheet.
type Leaderboard struct {
	SheetID   string     `json:"sheetId"`
	Standings []Standing `json:"standings"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
