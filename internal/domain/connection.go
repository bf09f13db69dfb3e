package domain

import (
	"bytes"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	ConnectionStatusRejected ConnectionStatus = "rejected"
)

type RelationshipStrength string

const (
	StrengthNew        RelationshipStrength = "new"
	StrengthDeveloping RelationshipStrength = "developing"
	StrengthStrong     RelationshipStrength = "strong"
	StrengthKey        RelationshipStrength = "key"
)

func (s RelationshipStrength) Valid() bool {
	switch s {
	case StrengthNew, StrengthDeveloping, StrengthStrong, StrengthKey:
		return true
	}
	return false
}

type CommunicationPreference string

const (
	PreferEmail   CommunicationPreference = "email"
	PreferPhone   CommunicationPreference = "phone"
	PreferMeeting CommunicationPreference = "meeting"
)

func (p CommunicationPreference) Valid() bool {
	switch p {
	case PreferEmail, PreferPhone, PreferMeeting:
		return true
	}
	return false
}

type CommunicationType string

const (
	CommunicationEmail   CommunicationType = "email"
	CommunicationPhone   CommunicationType = "phone"
	CommunicationMeeting CommunicationType = "meeting"
	CommunicationEvent   CommunicationType = "event"
)

func (t CommunicationType) Valid() bool {
	switch t {
	case CommunicationEmail, CommunicationPhone, CommunicationMeeting, CommunicationEvent:
		return true
	}
	return false
}

const maxNoteLength = 2000

// ConnectionNote is one entry of a connection's append-only note log
type ConnectionNote struct {
	At       time.Time `json:"at"`
	AuthorID uuid.UUID `json:"authorId"`
	Text     string    `json:"text"`
}

// CommunicationEntry records one logged interaction
type CommunicationEntry struct {
	Type     CommunicationType `json:"type"`
	Date     time.Time         `json:"date"`
	Notes    string            `json:"notes,omitempty"`
	LoggedBy uuid.UUID         `json:"loggedBy"`
}

// Connection is the single undirected edge between two members. The
// requester/recipient roles only matter while the edge is pending.
type Connection struct {
	ID                      uuid.UUID               `json:"id"`
	RequesterID             uuid.UUID               `json:"requesterId"`
	RecipientID             uuid.UUID               `json:"recipientId"`
	Status                  ConnectionStatus        `json:"status"`
	RelationshipStrength    RelationshipStrength    `json:"relationshipStrength"`
	CommunicationPreference CommunicationPreference `json:"communicationPreference"`
	LastContact             *time.Time              `json:"lastContact,omitempty"`
	LastCommunicationType   CommunicationType       `json:"lastCommunicationType,omitempty"`
	NextFollowUp            *time.Time              `json:"nextFollowUp,omitempty"`
	Notes                   []ConnectionNote        `json:"notes"`
	Tags                    []string                `json:"tags"`
	CommunicationHistory    []CommunicationEntry    `json:"communicationHistory"`
	LastActivity            time.Time               `json:"lastActivity"`
	CreatedAt               time.Time               `json:"createdAt"`
	UpdatedAt               time.Time               `json:"updatedAt"`
}

// CanonicalPair orders two ids so that the same pair always yields the same
// (low, high) tuple regardless of direction.
func CanonicalPair(a, b uuid.UUID) (low, high uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// NewConnection builds an edge between two distinct members
func NewConnection(requesterID, recipientID uuid.UUID, status ConnectionStatus, now time.Time) (*Connection, error) {
	if requesterID == recipientID {
		return nil, Validation("cannot connect with yourself")
	}
	return &Connection{
		ID:                      uuid.New(),
		RequesterID:             requesterID,
		RecipientID:             recipientID,
		Status:                  status,
		RelationshipStrength:    StrengthNew,
		CommunicationPreference: PreferEmail,
		Notes:                   []ConnectionNote{},
		Tags:                    []string{},
		CommunicationHistory:    []CommunicationEntry{},
		LastActivity:            now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

// Pair returns the canonical ordering of the two endpoints
func (c *Connection) Pair() (low, high uuid.UUID) {
	return CanonicalPair(c.RequesterID, c.RecipientID)
}

// Involves reports whether id is one of the two endpoints
func (c *Connection) Involves(id uuid.UUID) bool {
	return c.RequesterID == id || c.RecipientID == id
}

// OtherParty returns the endpoint that is not id
func (c *Connection) OtherParty(id uuid.UUID) uuid.UUID {
	if c.RequesterID == id {
		return c.RecipientID
	}
	return c.RequesterID
}

func (c *Connection) respond(actor Actor, to ConnectionStatus, now time.Time) error {
	if !actor.Is(c.RecipientID) {
		return Forbidden("only the recipient can respond to this request")
	}
	if c.Status != ConnectionStatusPending {
		return InvalidState("connection request is already %s", c.Status)
	}
	c.Status = to
	c.LastActivity = now
	c.UpdatedAt = now
	return nil
}

// Accept moves a pending request to accepted
func (c *Connection) Accept(actor Actor, now time.Time) error {
	return c.respond(actor, ConnectionStatusAccepted, now)
}

// Reject moves a pending request to rejected
func (c *Connection) Reject(actor Actor, now time.Time) error {
	return c.respond(actor, ConnectionStatusRejected, now)
}

func (c *Connection) requireParticipant(actor Actor) error {
	if !c.Involves(actor.ID) {
		return Forbidden("not authorized to modify this connection")
	}
	return nil
}

// RelationshipPatch is a partial update. Nil fields are left unchanged.
type RelationshipPatch struct {
	NextFollowUp            *time.Time
	Notes                   *string
	RelationshipStrength    *RelationshipStrength
	CommunicationPreference *CommunicationPreference
	Tags                    *[]string
}

// UpdateRelationship applies patch. A notes value is appended to the log.
func (c *Connection) UpdateRelationship(actor Actor, patch RelationshipPatch, now time.Time) error {
	if err := c.requireParticipant(actor); err != nil {
		return err
	}
	if patch.RelationshipStrength != nil && !patch.RelationshipStrength.Valid() {
		return Validation("invalid relationship strength %q", *patch.RelationshipStrength)
	}
	if patch.CommunicationPreference != nil && !patch.CommunicationPreference.Valid() {
		return Validation("invalid communication preference %q", *patch.CommunicationPreference)
	}
	if patch.Notes != nil && utf8.RuneCountInString(*patch.Notes) > maxNoteLength {
		return Validation("note must be at most %d characters", maxNoteLength)
	}

	if patch.NextFollowUp != nil {
		t := *patch.NextFollowUp
		c.NextFollowUp = &t
	}
	if patch.RelationshipStrength != nil {
		c.RelationshipStrength = *patch.RelationshipStrength
	}
	if patch.CommunicationPreference != nil {
		c.CommunicationPreference = *patch.CommunicationPreference
	}
	if patch.Tags != nil {
		c.Tags = normalizeConnectionTags(*patch.Tags)
	}
	if patch.Notes != nil {
		if text := strings.TrimSpace(*patch.Notes); text != "" {
			c.appendNote(actor.ID, text, now)
		}
	}
	c.UpdatedAt = now
	return nil
}

// LogCommunication appends an interaction and updates the contact fields
func (c *Connection) LogCommunication(actor Actor, typ CommunicationType, notes string, followUp *time.Time, now time.Time) error {
	if err := c.requireParticipant(actor); err != nil {
		return err
	}
	if !typ.Valid() {
		return Validation("invalid communication type %q", typ)
	}
	c.CommunicationHistory = append(c.CommunicationHistory, CommunicationEntry{
		Type:     typ,
		Date:     now,
		Notes:    strings.TrimSpace(notes),
		LoggedBy: actor.ID,
	})
	t := now
	c.LastContact = &t
	c.LastCommunicationType = typ
	if followUp != nil {
		f := *followUp
		c.NextFollowUp = &f
	}
	c.LastActivity = now
	c.UpdatedAt = now
	return nil
}

// AddNote appends a timestamped note. Notes are never replaced.
func (c *Connection) AddNote(actor Actor, text string, now time.Time) error {
	if err := c.requireParticipant(actor); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Validation("note is required")
	}
	if utf8.RuneCountInString(text) > maxNoteLength {
		return Validation("note must be at most %d characters", maxNoteLength)
	}
	c.appendNote(actor.ID, text, now)
	c.UpdatedAt = now
	return nil
}

// ScheduleFollowUp sets the next follow-up date, optionally with a note
func (c *Connection) ScheduleFollowUp(actor Actor, at time.Time, notes string, now time.Time) error {
	if err := c.requireParticipant(actor); err != nil {
		return err
	}
	if at.IsZero() {
		return Validation("follow-up date is required")
	}
	c.NextFollowUp = &at
	if text := strings.TrimSpace(notes); text != "" {
		c.appendNote(actor.ID, text, now)
	}
	c.UpdatedAt = now
	return nil
}

func (c *Connection) appendNote(author uuid.UUID, text string, now time.Time) {
	c.Notes = append(c.Notes, ConnectionNote{At: now, AuthorID: author, Text: text})
}

func normalizeConnectionTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ConnectionDirection narrows a listing relative to the user
type ConnectionDirection int

const (
	DirectionAny ConnectionDirection = iota
	DirectionIncoming
	DirectionOutgoing
)

// ConnectionQuery filters ListConnectionsForUser. An empty Status matches all.
type ConnectionQuery struct {
	Status    ConnectionStatus
	Direction ConnectionDirection
}

// Matches reports whether c satisfies q from userID's point of view
func (q ConnectionQuery) Matches(c *Connection, userID uuid.UUID) bool {
	if !c.Involves(userID) {
		return false
	}
	if q.Status != "" && c.Status != q.Status {
		return false
	}
	switch q.Direction {
	case DirectionIncoming:
		return c.RecipientID == userID
	case DirectionOutgoing:
		return c.RequesterID == userID
	}
	return true
}

// ConnectionRepository persists connections. CreateConnection returns
// ErrDuplicate when an edge already exists for the unordered pair.
type ConnectionRepository interface {
	CreateConnection(ctx context.Context, c *Connection) error
	GetConnection(ctx context.Context, id uuid.UUID) (*Connection, error)
	// GetConnectionForUpdate locks the row for the surrounding transaction.
	GetConnectionForUpdate(ctx context.Context, id uuid.UUID) (*Connection, error)
	FindConnectionBetween(ctx context.Context, a, b uuid.UUID) (*Connection, error)
	UpdateConnection(ctx context.Context, c *Connection) error
	DeleteConnection(ctx context.Context, id uuid.UUID) error
	ListConnectionsForUser(ctx context.Context, userID uuid.UUID, q ConnectionQuery) ([]*Connection, error)
}
