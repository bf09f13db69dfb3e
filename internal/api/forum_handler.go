package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/response"
)

const defaultForumSearchLimit = 10

// ForumHandler serves categories, topics and replies
type ForumHandler struct {
	forum  *domain.ForumService
	logger *zap.Logger
}

func NewForumHandler(forum *domain.ForumService, logger *zap.Logger) *ForumHandler {
	return &ForumHandler{forum: forum, logger: logger}
}

type categoryBody struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"max=100"`
}

type categoryPatchBody struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Icon        *string `json:"icon" validate:"omitempty,max=100"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
	IsActive    *bool   `json:"isActive"`
}

type topicBody struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	CategoryID *uuid.UUID `json:"categoryId"`
	Tags       []string   `json:"tags" validate:"max=10"`
}

type replyBody struct {
	Content       string     `json:"content"`
	ParentReplyID *uuid.UUID `json:"parentReplyId"`
}

type pinBody struct {
	Pinned *bool `json:"pinned"`
}

// ListCategories handles GET /forum/categories
func (h *ForumHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.forum.ListCategories(r.Context())
	if err != nil {
		writeError(w, h.logger, "list categories", err)
		return
	}
	response.OK(w, cats)
}

// AddCategory handles POST /forum/categories
func (h *ForumHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body categoryBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "add category", err)
		return
	}
	cat, err := h.forum.AddCategory(r.Context(), a, domain.CategoryInput{
		Name:        body.Name,
		Description: body.Description,
		Icon:        body.Icon,
	})
	if err != nil {
		writeError(w, h.logger, "add category", err)
		return
	}
	response.Created(w, cat)
}

// UpdateCategory handles PUT /forum/categories/{id}
func (h *ForumHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body categoryPatchBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "update category", err)
		return
	}
	cat, err := h.forum.UpdateCategory(r.Context(), a, id, domain.CategoryPatch{
		Name:        body.Name,
		Description: body.Description,
		Icon:        body.Icon,
		Order:       body.Order,
		IsActive:    body.IsActive,
	})
	if err != nil {
		writeError(w, h.logger, "update category", err)
		return
	}
	response.OK(w, cat)
}

// DeleteCategory handles DELETE /forum/categories/{id}
func (h *ForumHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.forum.DeleteCategory(r.Context(), a, id); err != nil {
		writeError(w, h.logger, "delete category", err)
		return
	}
	response.OK(w, map[string]string{"message": "category deleted"})
}

// ListTopics handles GET /forum/topics?category=&filter=&search=&page=&limit=
func (h *ForumHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.forum.ListTopics(r.Context(), domain.TopicListParams{
		CategorySlug: q.Get("category"),
		Filter:       domain.TopicFilter(q.Get("filter")),
		Search:       q.Get("search"),
		Page:         queryInt(r, "page", 1),
		Limit:        queryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, h.logger, "list topics", err)
		return
	}
	response.OK(w, list)
}

// GetTopic handles GET /forum/topics/{id}
func (h *ForumHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.forum.GetTopic(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get topic", err)
		return
	}
	response.OK(w, detail)
}

// CreateTopic handles POST /forum/topics
func (h *ForumHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body topicBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "create topic", err)
		return
	}
	topic, err := h.forum.CreateTopic(r.Context(), a, domain.TopicInput{
		Title:      body.Title,
		Content:    body.Content,
		CategoryID: body.CategoryID,
		Tags:       body.Tags,
	})
	if err != nil {
		writeError(w, h.logger, "create topic", err)
		return
	}
	response.Created(w, topic)
}

// DeleteTopic handles DELETE /forum/topics/{id}
func (h *ForumHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.forum.DeleteTopic(r.Context(), id, a); err != nil {
		writeError(w, h.logger, "delete topic", err)
		return
	}
	response.OK(w, map[string]string{"message": "topic deleted"})
}

// LockTopic handles POST /forum/topics/{id}/lock
func (h *ForumHandler) LockTopic(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	topic, err := h.forum.LockTopic(r.Context(), id, a)
	if err != nil {
		writeError(w, h.logger, "lock topic", err)
		return
	}
	response.OK(w, topic)
}

// PinTopic handles POST /forum/topics/{id}/pin. An empty body pins.
func (h *ForumHandler) PinTopic(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body pinBody
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, h.logger, "pin topic", domain.Validation("invalid request body"))
		return
	}
	pinned := body.Pinned == nil || *body.Pinned

	topic, err := h.forum.PinTopic(r.Context(), id, a, pinned)
	if err != nil {
		writeError(w, h.logger, "pin topic", err)
		return
	}
	response.OK(w, topic)
}

// SearchTopics handles GET /forum/search?query=&categoryId=&limit=
func (h *ForumHandler) SearchTopics(w http.ResponseWriter, r *http.Request) {
	categoryID, err := optionalID(r.URL.Query().Get("categoryId"))
	if err != nil {
		writeError(w, h.logger, "search topics", err)
		return
	}
	topics, err := h.forum.SearchTopics(r.Context(), r.URL.Query().Get("query"), categoryID, queryInt(r, "limit", defaultForumSearchLimit))
	if err != nil {
		writeError(w, h.logger, "search topics", err)
		return
	}
	response.OK(w, topics)
}

// Filters handles GET /forum/filters
func (h *ForumHandler) Filters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.forum.TopicFilters(r.Context())
	if err != nil {
		writeError(w, h.logger, "topic filters", err)
		return
	}
	response.OK(w, filters)
}

// FormOptions handles GET /forum/topic-form-options
func (h *ForumHandler) FormOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.forum.TopicFormOptions(r.Context())
	if err != nil {
		writeError(w, h.logger, "topic form options", err)
		return
	}
	response.OK(w, opts)
}

// TrendingTags handles GET /forum/trending-tags
func (h *ForumHandler) TrendingTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.forum.TrendingTags(r.Context())
	if err != nil {
		writeError(w, h.logger, "trending tags", err)
		return
	}
	response.OK(w, tags)
}

// AddReply handles POST /forum/topics/{id}/replies
func (h *ForumHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	topicID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body replyBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "add reply", err)
		return
	}
	reply, err := h.forum.AddReply(r.Context(), topicID, a, body.Content, body.ParentReplyID)
	if err != nil {
		writeError(w, h.logger, "add reply", err)
		return
	}
	response.Created(w, reply)
}

// EditReply handles PUT /forum/replies/{replyId}
func (h *ForumHandler) EditReply(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	replyID, ok := pathID(w, r, "replyId")
	if !ok {
		return
	}
	var body replyBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "edit reply", err)
		return
	}
	reply, err := h.forum.EditReply(r.Context(), replyID, a, body.Content)
	if err != nil {
		writeError(w, h.logger, "edit reply", err)
		return
	}
	response.OK(w, reply)
}

// DeleteReply handles DELETE /forum/replies/{replyId}
func (h *ForumHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	replyID, ok := pathID(w, r, "replyId")
	if !ok {
		return
	}
	if err := h.forum.DeleteReply(r.Context(), replyID, a); err != nil {
		writeError(w, h.logger, "delete reply", err)
		return
	}
	response.OK(w, map[string]string{"message": "reply deleted"})
}

// LikeReply handles POST /forum/replies/{replyId}/like
func (h *ForumHandler) LikeReply(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	replyID, ok := pathID(w, r, "replyId")
	if !ok {
		return
	}
	res, err := h.forum.LikeReply(r.Context(), replyID, a)
	if err != nil {
		writeError(w, h.logger, "like reply", err)
		return
	}
	response.OK(w, res)
}
