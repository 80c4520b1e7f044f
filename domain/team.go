package domain

import "time"

// TeamID identifies a team. The chat core never interprets it beyond
// scoping rooms and storage keys.
type TeamID string

func (t TeamID) String() string { return string(t) }

// Team is owned by the collaboration layer; the core only needs it for
// directory seeding and the inspect tooling.
type Team struct {
	ID          TeamID    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AdminID     string    `json:"adminId"`
	ManagerID   *string   `json:"managerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// TeamMember records one user's membership in one team.
type TeamMember struct {
	UserID   string    `json:"userId"`
	TeamID   TeamID    `json:"teamId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
