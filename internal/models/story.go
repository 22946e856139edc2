package models

import "time"

// StorytellerRole identifies whose life story is being told. The role decides
// which question catalog the story walks through.
type StorytellerRole string

const (
	RoleMom       StorytellerRole = "mom"
	RoleDad       StorytellerRole = "dad"
	RoleSon       StorytellerRole = "son"
	RoleDaughter  StorytellerRole = "daughter"
	RoleGrandma   StorytellerRole = "grandma"
	RoleGrandpa   StorytellerRole = "grandpa"
	RoleAuntUncle StorytellerRole = "aunt_uncle"
	RoleSibling   StorytellerRole = "sibling"
)

// Roles lists every storyteller role in presentation order.
var Roles = []StorytellerRole{
	RoleMom, RoleDad, RoleGrandma, RoleGrandpa, RoleSon, RoleDaughter, RoleAuntUncle, RoleSibling,
}

var roleLabels = map[StorytellerRole]string{
	RoleMom:       "Mom",
	RoleDad:       "Dad",
	RoleSon:       "Son",
	RoleDaughter:  "Daughter",
	RoleGrandma:   "Grandma",
	RoleGrandpa:   "Grandpa",
	RoleAuntUncle: "Aunt/Uncle",
	RoleSibling:   "Sibling",
}

// Label returns the human-readable form of the role.
func (r StorytellerRole) Label() string {
	return roleLabels[r]
}

// Valid reports whether the role is one of the known catalog roles.
func (r StorytellerRole) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Plan is the purchased tier of a story.
type Plan string

const (
	PlanStoryteller Plan = "storyteller"
	PlanKeepsake    Plan = "keepsake"
	PlanLegacy      Plan = "legacy"
)

// PremiumMedia reports whether the plan allows saving audio and video
// recordings with answers.
func (p Plan) PremiumMedia() bool {
	return p == PlanKeepsake || p == PlanLegacy
}

// StoryStatus is the lifecycle state of a story.
type StoryStatus string

const (
	StoryActive   StoryStatus = "active"
	StoryComplete StoryStatus = "complete"
)

// Story is one storyteller's life-story project and its aggregate progress.
type Story struct {
	ID                string          `db:"id"`
	UserID            []byte          `db:"user_id"`
	Role              StorytellerRole `db:"role"`
	Title             string          `db:"title"`
	Plan              Plan            `db:"plan"`
	Status            StoryStatus     `db:"status"`
	TotalQuestions    int             `db:"total_questions"`
	AnsweredQuestions int             `db:"answered_questions"`
	Progress          int             `db:"progress"`
	ShareToken        string          `db:"share_token"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	CompletedAt       *time.Time      `db:"completed_at"`
}
