package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User represents a member account in the domain layer
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Title        string     `json:"title,omitempty"`
	Company      string     `json:"company,omitempty"`
	Industry     string     `json:"industry,omitempty"`
	ChapterID    *uuid.UUID `json:"chapterId,omitempty"`
	MemberType   string     `json:"memberType,omitempty"`
	LastActive   *time.Time `json:"lastActive,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserSummary is the public card of a member embedded in other views
type UserSummary struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Title      string     `json:"title,omitempty"`
	Company    string     `json:"company,omitempty"`
	Industry   string     `json:"industry,omitempty"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

// Summary converts a User to a UserSummary
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Title:      u.Title,
		Company:    u.Company,
		Industry:   u.Industry,
		LastActive: u.LastActive,
	}
}

// Actor returns the capability for this user
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// InChapter reports whether the user belongs to chapter id
func (u *User) InChapter(id *uuid.UUID) bool {
	return u.ChapterID != nil && id != nil && *u.ChapterID == *id
}

// Chapter is a local group of members
type Chapter struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Region    string    `json:"region,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Location renders "city, country" skipping empty parts
func (c *Chapter) Location() string {
	switch {
	case c.City != "" && c.Country != "":
		return c.City + ", " + c.Country
	case c.City != "":
		return c.City
	default:
		return c.Country
	}
}

// CreateUserParams holds parameters for user creation
type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Title        string
	Company      string
	Industry     string
	ChapterID    *uuid.UUID
}

// IdentityStore holds member records and chapters. Every lookup by id
// returns ErrNotFound when the record is absent.
type IdentityStore interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	// FindUsersByIndustryOrChapter returns members sharing the industry or
	// the chapter, skipping the excluded ids, at most limit rows.
	FindUsersByIndustryOrChapter(ctx context.Context, industry string, chapterID *uuid.UUID, exclude []uuid.UUID, limit int) ([]*User, error)
	ListChapterMembers(ctx context.Context, chapterID uuid.UUID) ([]*User, error)

	GetChapter(ctx context.Context, id uuid.UUID) (*Chapter, error)
	ListChapters(ctx context.Context) ([]*Chapter, error)
	ListIndustries(ctx context.Context) ([]string, error)
}

// usersByID indexes users for view assembly
func usersByID(users []*User) map[uuid.UUID]*User {
	m := make(map[uuid.UUID]*User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}
