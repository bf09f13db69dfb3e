package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/response"
)

const (
	defaultFollowUpDays = 7
	defaultRecentLimit  = 10
)

// NetworkHandler serves the connection graph
type NetworkHandler struct {
	connService *domain.ConnectionService
	logger      *zap.Logger
}

func NewNetworkHandler(connService *domain.ConnectionService, logger *zap.Logger) *NetworkHandler {
	return &NetworkHandler{
		connService: connService,
		logger:      logger,
	}
}

type sendRequestBody struct {
	RecipientID uuid.UUID `json:"recipientId" validate:"required"`
}

type relationshipBody struct {
	NextFollowUp            *time.Time `json:"nextFollowUp"`
	Notes                   *string    `json:"notes" validate:"omitempty,max=2000"`
	RelationshipStrength    *string    `json:"relationshipStrength"`
	CommunicationPreference *string    `json:"communicationPreference"`
	Tags                    *[]string  `json:"tags"`
}

type communicationBody struct {
	Type         string     `json:"type" validate:"required"`
	Notes        string     `json:"notes" validate:"max=2000"`
	FollowUpDate *time.Time `json:"followUpDate"`
}

type followUpBody struct {
	Date  time.Time `json:"date" validate:"required"`
	Notes string    `json:"notes" validate:"max=2000"`
}

type noteBody struct {
	Note string `json:"note" validate:"required,max=2000"`
}

type directConnectionBody struct {
	UserID1 uuid.UUID `json:"userId1" validate:"required"`
	UserID2 uuid.UUID `json:"userId2" validate:"required"`
	Notes   string    `json:"notes" validate:"max=2000"`
}

type bulkConnectionsBody struct {
	Connections []domain.ConnectionPair `json:"connections" validate:"required,min=1"`
}

// Stats handles GET /network/stats
func (h *NetworkHandler) Stats(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	stats, err := h.connService.Stats(r.Context(), a.ID)
	if err != nil {
		writeError(w, h.logger, "network stats", err)
		return
	}
	response.OK(w, stats)
}

// Members handles GET /network/members
func (h *NetworkHandler) Members(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	members, err := h.connService.Members(r.Context(), a.ID, domain.MemberFilter{
		Strength: domain.RelationshipStrength(q.Get("strength")),
		Tag:      q.Get("tag"),
		Industry: q.Get("industry"),
		Query:    q.Get("query"),
	})
	if err != nil {
		writeError(w, h.logger, "list members", err)
		return
	}
	response.OK(w, members)
}

// FollowUps handles GET /network/members/follow-ups?days=
func (h *NetworkHandler) FollowUps(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	days := queryInt(r, "days", defaultFollowUpDays)
	if days < 0 {
		days = defaultFollowUpDays
	}
	due, err := h.connService.FollowUpsDue(r.Context(), a.ID, time.Duration(days)*24*time.Hour)
	if err != nil {
		writeError(w, h.logger, "list follow-ups", err)
		return
	}
	response.OK(w, due)
}

// RecentCommunications handles GET /network/members/recent
func (h *NetworkHandler) RecentCommunications(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	recent, err := h.connService.RecentCommunications(r.Context(), a.ID, queryInt(r, "limit", defaultRecentLimit))
	if err != nil {
		writeError(w, h.logger, "list recent communications", err)
		return
	}
	response.OK(w, recent)
}

// KeyRelationships handles GET /network/members/key-relationships
func (h *NetworkHandler) KeyRelationships(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	key, err := h.connService.KeyRelationships(r.Context(), a.ID)
	if err != nil {
		writeError(w, h.logger, "list key relationships", err)
		return
	}
	response.OK(w, key)
}

// UpdateRelationship handles PUT /network/relationship/{connectionId}
func (h *NetworkHandler) UpdateRelationship(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "connectionId")
	if !ok {
		return
	}
	var body relationshipBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "update relationship", err)
		return
	}

	patch := domain.RelationshipPatch{
		NextFollowUp: body.NextFollowUp,
		Notes:        body.Notes,
		Tags:         body.Tags,
	}
	if body.RelationshipStrength != nil {
		s := domain.RelationshipStrength(*body.RelationshipStrength)
		patch.RelationshipStrength = &s
	}
	if body.CommunicationPreference != nil {
		p := domain.CommunicationPreference(*body.CommunicationPreference)
		patch.CommunicationPreference = &p
	}

	conn, err := h.connService.UpdateRelationship(r.Context(), id, a, patch)
	if err != nil {
		writeError(w, h.logger, "update relationship", err)
		return
	}
	response.OK(w, conn)
}

// LogCommunication handles POST /network/relationship/{connectionId}/communication
func (h *NetworkHandler) LogCommunication(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "connectionId")
	if !ok {
		return
	}
	var body communicationBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "log communication", err)
		return
	}

	conn, err := h.connService.LogCommunication(r.Context(), id, a, domain.LogCommunicationInput{
		Type:         domain.CommunicationType(body.Type),
		Notes:        body.Notes,
		FollowUpDate: body.FollowUpDate,
	})
	if err != nil {
		writeError(w, h.logger, "log communication", err)
		return
	}
	response.OK(w, conn)
}

// ScheduleFollowUp handles POST /network/relationship/{connectionId}/follow-up
func (h *NetworkHandler) ScheduleFollowUp(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "connectionId")
	if !ok {
		return
	}
	var body followUpBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "schedule follow-up", err)
		return
	}

	conn, err := h.connService.ScheduleFollowUp(r.Context(), id, a, body.Date, body.Notes)
	if err != nil {
		writeError(w, h.logger, "schedule follow-up", err)
		return
	}
	response.OK(w, conn)
}

// AddNote handles POST /network/relationship/{connectionId}/note
func (h *NetworkHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "connectionId")
	if !ok {
		return
	}
	var body noteBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "add note", err)
		return
	}

	conn, err := h.connService.AddNote(r.Context(), id, a, body.Note)
	if err != nil {
		writeError(w, h.logger, "add note", err)
		return
	}
	response.OK(w, conn)
}

// Chapters handles GET /network/chapters
func (h *NetworkHandler) Chapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.connService.Chapters(r.Context())
	if err != nil {
		writeError(w, h.logger, "list chapters", err)
		return
	}
	response.OK(w, chapters)
}

// Industries handles GET /network/industries
func (h *NetworkHandler) Industries(w http.ResponseWriter, r *http.Request) {
	industries, err := h.connService.Industries(r.Context())
	if err != nil {
		writeError(w, h.logger, "list industries", err)
		return
	}
	response.OK(w, industries)
}

// MyConnections handles GET /network/connections
func (h *NetworkHandler) MyConnections(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	conns, err := h.connService.MyConnections(r.Context(), a.ID)
	if err != nil {
		writeError(w, h.logger, "list connections", err)
		return
	}
	response.OK(w, conns)
}

// PendingRequests handles GET /network/requests
func (h *NetworkHandler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	pending, err := h.connService.PendingRequests(r.Context(), a.ID)
	if err != nil {
		writeError(w, h.logger, "list requests", err)
		return
	}
	response.OK(w, pending)
}

// ChapterMembers handles GET /network/chapter-members
func (h *NetworkHandler) ChapterMembers(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	view, err := h.connService.ChapterMembers(r.Context(), a.ID)
	if err != nil {
		writeError(w, h.logger, "list chapter members", err)
		return
	}
	response.OK(w, view)
}

// SendRequest handles POST /network/request
func (h *NetworkHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body sendRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "send request", err)
		return
	}

	conn, err := h.connService.SendRequest(r.Context(), a, body.RecipientID)
	if err != nil {
		writeError(w, h.logger, "send request", err)
		return
	}
	response.Created(w, conn)
}

// Accept handles POST /network/request/{connectionId}/accept
func (h *NetworkHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "accept request", h.connService.Accept)
}

// Reject handles POST /network/request/{connectionId}/reject
func (h *NetworkHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "reject request", h.connService.Reject)
}

func (h *NetworkHandler) respond(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, uuid.UUID, domain.Actor) (*domain.Connection, error)) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "connectionId")
	if !ok {
		return
	}
	conn, err := fn(r.Context(), id, a)
	if err != nil {
		writeError(w, h.logger, op, err)
		return
	}
	response.OK(w, conn)
}

// Remove handles DELETE /network/connection/{connectionId}
func (h *NetworkHandler) Remove(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "connectionId")
	if !ok {
		return
	}
	if err := h.connService.Remove(r.Context(), id, a); err != nil {
		writeError(w, h.logger, "remove connection", err)
		return
	}
	response.OK(w, map[string]string{"message": "connection removed"})
}

// CreateDirect handles POST /network/connection
func (h *NetworkHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body directConnectionBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "create connection", err)
		return
	}

	conn, err := h.connService.CreateDirectConnection(r.Context(), a, body.UserID1, body.UserID2, body.Notes)
	if err != nil {
		writeError(w, h.logger, "create connection", err)
		return
	}
	response.Created(w, conn)
}

// BulkAdd handles POST /network/connections/bulk
func (h *NetworkHandler) BulkAdd(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body bulkConnectionsBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "bulk add connections", err)
		return
	}

	result, err := h.connService.BulkAddConnections(r.Context(), a, body.Connections)
	if err != nil {
		writeError(w, h.logger, "bulk add connections", err)
		return
	}
	h.logger.Info("bulk connections imported",
		zap.String("admin_id", a.ID.String()),
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
	)
	response.OK(w, result)
}

// PotentialConnections handles GET /network/potential-connections
func (h *NetworkHandler) PotentialConnections(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	suggestions, err := h.connService.PotentialConnections(r.Context(), a.ID)
	if err != nil {
		writeError(w, h.logger, "find potential connections", err)
		return
	}
	response.OK(w, suggestions)
}

// Search handles GET /network/search
func (h *NetworkHandler) Search(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	result, err := h.connService.Search(r.Context(), a.ID, domain.SearchParams{
		Query:    q.Get("query"),
		Type:     domain.SearchScope(q.Get("type")),
		Industry: q.Get("industry"),
		Company:  q.Get("company"),
		SortBy:   domain.SearchSort(q.Get("sortBy")),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, h.logger, "search network", err)
		return
	}
	response.OK(w, result)
}
