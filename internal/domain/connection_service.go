package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const potentialConnectionsLimit = 10

type ConnectionService struct {
	repo     ConnectionRepository
	users    IdentityStore
	tx       Transactor
	observer Observer
	now      func() time.Time
}

func NewConnectionService(repo ConnectionRepository, users IdentityStore, tx Transactor, observer Observer) *ConnectionService {
	return &ConnectionService{
		repo:     repo,
		users:    users,
		tx:       tx,
		observer: observerOrNop(observer),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendRequest creates a pending edge from the actor to recipientID
func (s *ConnectionService) SendRequest(ctx context.Context, actor Actor, recipientID uuid.UUID) (*Connection, error) {
	conn, err := NewConnection(actor.ID, recipientID, ConnectionStatusPending, s.now())
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, recipientID, "recipient"); err != nil {
			return err
		}
		return s.insert(ctx, conn)
	})
	if err != nil {
		return nil, err
	}

	s.observer.Observe(EventConnectionRequested)
	return conn, nil
}

// Accept is callable only by the recipient of a pending request
func (s *ConnectionService) Accept(ctx context.Context, connectionID uuid.UUID, actor Actor) (*Connection, error) {
	conn, err := s.mutate(ctx, connectionID, func(c *Connection) error {
		return c.Accept(actor, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.observer.Observe(EventConnectionAccepted)
	return conn, nil
}

// Reject is callable only by the recipient of a pending request
func (s *ConnectionService) Reject(ctx context.Context, connectionID uuid.UUID, actor Actor) (*Connection, error) {
	return s.mutate(ctx, connectionID, func(c *Connection) error {
		return c.Reject(actor, s.now())
	})
}

// Remove deletes the edge whatever its status. Either endpoint or an admin may remove it.
func (s *ConnectionService) Remove(ctx context.Context, connectionID uuid.UUID, actor Actor) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		conn, err := s.repo.GetConnectionForUpdate(ctx, connectionID)
		if err != nil {
			return notFoundAs(err, "connection")
		}
		if !conn.Involves(actor.ID) && !actor.IsAdmin() {
			return Forbidden("not authorized to remove this connection")
		}
		return notFoundAs(s.repo.DeleteConnection(ctx, connectionID), "connection")
	})
}

func (s *ConnectionService) UpdateRelationship(ctx context.Context, connectionID uuid.UUID, actor Actor, patch RelationshipPatch) (*Connection, error) {
	return s.mutate(ctx, connectionID, func(c *Connection) error {
		return c.UpdateRelationship(actor, patch, s.now())
	})
}

// LogCommunicationInput is the body of a communication log entry
type LogCommunicationInput struct {
	Type         CommunicationType
	Notes        string
	FollowUpDate *time.Time
}

func (s *ConnectionService) LogCommunication(ctx context.Context, connectionID uuid.UUID, actor Actor, in LogCommunicationInput) (*Connection, error) {
	return s.mutate(ctx, connectionID, func(c *Connection) error {
		return c.LogCommunication(actor, in.Type, in.Notes, in.FollowUpDate, s.now())
	})
}

func (s *ConnectionService) AddNote(ctx context.Context, connectionID uuid.UUID, actor Actor, note string) (*Connection, error) {
	return s.mutate(ctx, connectionID, func(c *Connection) error {
		return c.AddNote(actor, note, s.now())
	})
}

func (s *ConnectionService) ScheduleFollowUp(ctx context.Context, connectionID uuid.UUID, actor Actor, at time.Time, notes string) (*Connection, error) {
	return s.mutate(ctx, connectionID, func(c *Connection) error {
		return c.ScheduleFollowUp(actor, at, notes, s.now())
	})
}

// mutate loads the edge under lock, applies fn and saves it in one unit
func (s *ConnectionService) mutate(ctx context.Context, connectionID uuid.UUID, fn func(*Connection) error) (*Connection, error) {
	var out *Connection
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		conn, err := s.repo.GetConnectionForUpdate(ctx, connectionID)
		if err != nil {
			return notFoundAs(err, "connection")
		}
		if err := fn(conn); err != nil {
			return err
		}
		if err := s.repo.UpdateConnection(ctx, conn); err != nil {
			return notFoundAs(err, "connection")
		}
		out = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ConnectionService) insert(ctx context.Context, conn *Connection) error {
	existing, err := s.repo.FindConnectionBetween(ctx, conn.RequesterID, conn.RecipientID)
	switch {
	case err == nil:
		return Conflict("a connection already exists between these members (%s)", existing.Status)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	if err := s.repo.CreateConnection(ctx, conn); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Conflict("a connection already exists between these members")
		}
		return err
	}
	return nil
}

func (s *ConnectionService) requireUser(ctx context.Context, id uuid.UUID, label string) error {
	ok, err := s.users.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return NotFound(label)
	}
	return nil
}

// CreateDirectConnection inserts an accepted edge between two members. Admin only.
func (s *ConnectionService) CreateDirectConnection(ctx context.Context, actor Actor, userID1, userID2 uuid.UUID, notes string) (*Connection, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin access required")
	}
	return s.createDirect(ctx, actor, userID1, userID2, notes)
}

func (s *ConnectionService) createDirect(ctx context.Context, actor Actor, userID1, userID2 uuid.UUID, notes string) (*Connection, error) {
	if userID1 == uuid.Nil || userID2 == uuid.Nil {
		return nil, Validation("both user ids are required")
	}
	now := s.now()
	conn, err := NewConnection(userID1, userID2, ConnectionStatusAccepted, now)
	if err != nil {
		return nil, err
	}
	if text := strings.TrimSpace(notes); text != "" {
		conn.appendNote(actor.ID, text, now)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireUser(ctx, userID1, "user"); err != nil {
			return err
		}
		if err := s.requireUser(ctx, userID2, "user"); err != nil {
			return err
		}
		return s.insert(ctx, conn)
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ConnectionPair is one item of a bulk import
type ConnectionPair struct {
	UserID1 uuid.UUID `json:"userId1"`
	UserID2 uuid.UUID `json:"userId2"`
	Notes   string    `json:"notes,omitempty"`
}

// BulkResult aggregates per-item outcomes of a bulk import
type BulkResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// BulkAddConnections creates accepted edges item by item. A failing item is
// recorded in the result and does not abort the batch.
func (s *ConnectionService) BulkAddConnections(ctx context.Context, actor Actor, pairs []ConnectionPair) (*BulkResult, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin access required")
	}
	if len(pairs) == 0 {
		return nil, Validation("a non-empty connections array is required")
	}

	result := &BulkResult{Total: len(pairs), Errors: []string{}}
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.createDirect(ctx, actor, p.UserID1, p.UserID2, p.Notes); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d (%s, %s): %v", i, p.UserID1, p.UserID2, err))
			continue
		}
		result.Successful++
	}
	return result, nil
}

// NetworkStats is the dashboard summary of a member's network
type NetworkStats struct {
	TotalConnections int `json:"totalConnections"`
	PendingRequests  int `json:"pendingRequests"`
	ChapterMembers   int `json:"chapterMembers"`
}

func (s *ConnectionService) Stats(ctx context.Context, userID uuid.UUID) (*NetworkStats, error) {
	accepted, err := s.repo.ListConnectionsForUser(ctx, userID, ConnectionQuery{Status: ConnectionStatusAccepted})
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.ListConnectionsForUser(ctx, userID, ConnectionQuery{Status: ConnectionStatusPending, Direction: DirectionIncoming})
	if err != nil {
		return nil, err
	}

	stats := &NetworkStats{TotalConnections: len(accepted), PendingRequests: len(pending)}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}
	if user.ChapterID != nil {
		members, err := s.users.ListChapterMembers(ctx, *user.ChapterID)
		if err != nil {
			return nil, err
		}
		stats.ChapterMembers = len(members)
	}
	return stats, nil
}

// ConnectionView is an accepted edge rendered from one member's side
type ConnectionView struct {
	UserSummary
	ConnectionID            uuid.UUID               `json:"connectionId"`
	RelationshipStrength    RelationshipStrength    `json:"relationshipStrength"`
	CommunicationPreference CommunicationPreference `json:"communicationPreference"`
	LastContact             *time.Time              `json:"lastContact,omitempty"`
	LastCommunicationType   CommunicationType       `json:"lastCommunicationType,omitempty"`
	NextFollowUp            *time.Time              `json:"nextFollowUp,omitempty"`
	Tags                    []string                `json:"tags"`
	Notes                   []ConnectionNote        `json:"notes"`
	ConnectionDate          time.Time               `json:"connectionDate"`
}

// PendingRequestView is an incoming request with the requester's card
type PendingRequestView struct {
	ID          uuid.UUID   `json:"id"`
	Requester   UserSummary `json:"requester"`
	RequestDate time.Time   `json:"requestDate"`
}

// MemberFilter narrows the member listing. Empty fields match everything.
type MemberFilter struct {
	Strength RelationshipStrength
	Tag      string
	Industry string
	Query    string
}

// MyConnections lists accepted edges as the other party's card
func (s *ConnectionService) MyConnections(ctx context.Context, userID uuid.UUID) ([]ConnectionView, error) {
	return s.Members(ctx, userID, MemberFilter{})
}

// Members lists accepted edges filtered by relationship metadata
func (s *ConnectionService) Members(ctx context.Context, userID uuid.UUID, f MemberFilter) ([]ConnectionView, error) {
	views, err := s.acceptedViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := views[:0]
	for _, v := range views {
		if f.Strength != "" && v.RelationshipStrength != f.Strength {
			continue
		}
		if f.Tag != "" && !containsString(v.Tags, f.Tag) {
			continue
		}
		if f.Industry != "" && v.Industry != f.Industry {
			continue
		}
		if f.Query != "" && !matchesText(v.UserSummary, f.Query) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// FollowUpsDue lists accepted edges whose next follow-up falls before now+within, soonest first
func (s *ConnectionService) FollowUpsDue(ctx context.Context, userID uuid.UUID, within time.Duration) ([]ConnectionView, error) {
	views, err := s.acceptedViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(within)
	out := make([]ConnectionView, 0, len(views))
	for _, v := range views {
		if v.NextFollowUp != nil && !v.NextFollowUp.After(cutoff) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextFollowUp.Before(*out[j].NextFollowUp)
	})
	return out, nil
}

// RecentCommunications lists contacted edges, most recent contact first
func (s *ConnectionService) RecentCommunications(ctx context.Context, userID uuid.UUID, limit int) ([]ConnectionView, error) {
	views, err := s.acceptedViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ConnectionView, 0, len(views))
	for _, v := range views {
		if v.LastContact != nil {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastContact.After(*out[j].LastContact)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// KeyRelationships lists edges rated strong or key
func (s *ConnectionService) KeyRelationships(ctx context.Context, userID uuid.UUID) ([]ConnectionView, error) {
	views, err := s.acceptedViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ConnectionView, 0, len(views))
	for _, v := range views {
		if v.RelationshipStrength == StrengthStrong || v.RelationshipStrength == StrengthKey {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *ConnectionService) acceptedViews(ctx context.Context, userID uuid.UUID) ([]ConnectionView, error) {
	conns, err := s.repo.ListConnectionsForUser(ctx, userID, ConnectionQuery{Status: ConnectionStatusAccepted})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.OtherParty(userID))
	}
	users, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := usersByID(users)

	views := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		other, ok := byID[c.OtherParty(userID)]
		if !ok {
			continue
		}
		views = append(views, ConnectionView{
			UserSummary:             other.Summary(),
			ConnectionID:            c.ID,
			RelationshipStrength:    c.RelationshipStrength,
			CommunicationPreference: c.CommunicationPreference,
			LastContact:             c.LastContact,
			LastCommunicationType:   c.LastCommunicationType,
			NextFollowUp:            c.NextFollowUp,
			Tags:                    c.Tags,
			Notes:                   c.Notes,
			ConnectionDate:          c.UpdatedAt,
		})
	}
	return views, nil
}

// PendingRequests lists incoming pending requests
func (s *ConnectionService) PendingRequests(ctx context.Context, userID uuid.UUID) ([]PendingRequestView, error) {
	conns, err := s.repo.ListConnectionsForUser(ctx, userID, ConnectionQuery{Status: ConnectionStatusPending, Direction: DirectionIncoming})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.RequesterID)
	}
	users, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := usersByID(users)

	out := make([]PendingRequestView, 0, len(conns))
	for _, c := range conns {
		requester, ok := byID[c.RequesterID]
		if !ok {
			continue
		}
		out = append(out, PendingRequestView{ID: c.ID, Requester: requester.Summary(), RequestDate: c.CreatedAt})
	}
	return out, nil
}

// ChapterMembersView lists the peers of a member's chapter
type ChapterMembersView struct {
	ChapterName string        `json:"chapterName"`
	Location    string        `json:"location,omitempty"`
	Members     []UserSummary `json:"members"`
}

func (s *ConnectionService) ChapterMembers(ctx context.Context, userID uuid.UUID) (*ChapterMembersView, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}
	if user.ChapterID == nil {
		return nil, NotFound("chapter")
	}
	chapter, err := s.users.GetChapter(ctx, *user.ChapterID)
	if err != nil {
		return nil, notFoundAs(err, "chapter")
	}
	members, err := s.users.ListChapterMembers(ctx, chapter.ID)
	if err != nil {
		return nil, err
	}

	view := &ChapterMembersView{ChapterName: chapter.Name, Location: chapter.Location(), Members: []UserSummary{}}
	for _, m := range members {
		if m.ID == userID {
			continue
		}
		view.Members = append(view.Members, m.Summary())
	}
	return view, nil
}

// PotentialConnection is a suggested member with the reason it matched
type PotentialConnection struct {
	UserSummary
	MatchReason string `json:"matchReason"`
}

// PotentialConnections suggests members sharing the user's industry or
// chapter who have no edge with the user in any status.
func (s *ConnectionService) PotentialConnections(ctx context.Context, userID uuid.UUID) ([]PotentialConnection, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}
	if user.Industry == "" && user.ChapterID == nil {
		return []PotentialConnection{}, nil
	}

	conns, err := s.repo.ListConnectionsForUser(ctx, userID, ConnectionQuery{})
	if err != nil {
		return nil, err
	}
	exclude := make([]uuid.UUID, 0, len(conns)+1)
	exclude = append(exclude, userID)
	for _, c := range conns {
		exclude = append(exclude, c.OtherParty(userID))
	}

	candidates, err := s.users.FindUsersByIndustryOrChapter(ctx, user.Industry, user.ChapterID, exclude, potentialConnectionsLimit)
	if err != nil {
		return nil, err
	}

	out := make([]PotentialConnection, 0, len(candidates))
	for _, c := range candidates {
		reason := "Same chapter"
		if user.Industry != "" && c.Industry == user.Industry {
			reason = "Same industry"
		}
		out = append(out, PotentialConnection{UserSummary: c.Summary(), MatchReason: reason})
		if len(out) == potentialConnectionsLimit {
			break
		}
	}
	return out, nil
}

func (s *ConnectionService) Chapters(ctx context.Context) ([]*Chapter, error) {
	return s.users.ListChapters(ctx)
}

func (s *ConnectionService) Industries(ctx context.Context) ([]string, error) {
	return s.users.ListIndustries(ctx)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
