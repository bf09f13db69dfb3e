package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/response"
)

const (
	maxUploadSize          = 10 << 20
	defaultResourcePage    = 12
	defaultCommentPageSize = 10
)

var allowedUploadExt = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true,
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".mp4": true, ".webm": true, ".mp3": true,
}

// ResourceHandler serves the resource catalogue and its engagement
type ResourceHandler struct {
	resources *domain.ResourceService
	logger    *zap.Logger
}

func NewResourceHandler(resources *domain.ResourceService, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, logger: logger}
}

type commentBody struct {
	Comment string `json:"comment"`
}

type commentReplyBody struct {
	Text string `json:"text"`
}

// Search handles GET /resources/search
func (h *ResourceHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.resources.SearchResources(r.Context(), domain.ResourceSearchParams{
		ResourceFilter: resourceFilter(q),
		ExclusiveOnly:  queryBool(r, "exclusive"),
		Sort:           domain.ResourceSort(q.Get("sort")),
		Page:           queryInt(r, "page", 1),
		Limit:          queryInt(r, "limit", defaultResourcePage),
	})
	if err != nil {
		writeError(w, h.logger, "search resources", err)
		return
	}
	response.OK(w, result)
}

// FilterOptions handles GET /resources/filter-options
func (h *ResourceHandler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.resources.FilterOptions(r.Context())
	if err != nil {
		writeError(w, h.logger, "resource filter options", err)
		return
	}
	response.OK(w, opts)
}

// Recent handles GET /resources/recent
func (h *ResourceHandler) Recent(w http.ResponseWriter, r *http.Request) {
	cards, err := h.resources.RecentResources(r.Context())
	if err != nil {
		writeError(w, h.logger, "recent resources", err)
		return
	}
	response.OK(w, cards)
}

// List handles GET /resources?type=&level=&category=&search=
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.resources.ListResources(r.Context(), resourceFilter(r.URL.Query()))
	if err != nil {
		writeError(w, h.logger, "list resources", err)
		return
	}
	response.OK(w, list)
}

func resourceFilter(q url.Values) domain.ResourceFilter {
	return domain.ResourceFilter{
		Type:     q.Get("type"),
		Level:    q.Get("level"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
}

// Get handles GET /resources/{id}
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.resources.GetResource(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get resource", err)
		return
	}
	response.OK(w, detail)
}

// Create handles POST /resources as multipart/form-data with an optional "image" part
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	form, image, err := readResourceForm(w, r)
	if err != nil {
		writeError(w, h.logger, "add resource", err)
		return
	}
	if image != nil {
		defer image.close()
	}

	in := domain.ResourceInput{
		Title:        form.Get("title"),
		Description:  form.Get("description"),
		Content:      form.Get("content"),
		Category:     form.Get("category"),
		AuthorName:   form.Get("author"),
		ResourceType: domain.ResourceType(strings.ToLower(form.Get("resourceType"))),
		Level:        domain.ResourceLevel(strings.ToLower(form.Get("level"))),
		Tags:         formTags(form["tags"]),
		DownloadURL:  form.Get("downloadUrl"),
		VideoURL:     form.Get("videoUrl"),
	}
	if in.IsExclusive, err = formBool(form, "isExclusive"); err != nil {
		writeError(w, h.logger, "add resource", err)
		return
	}
	if in.ReadTime, err = formInt(form, "readTime"); err != nil {
		writeError(w, h.logger, "add resource", err)
		return
	}
	if in.Duration, err = formInt(form, "duration"); err != nil {
		writeError(w, h.logger, "add resource", err)
		return
	}

	res, err := h.resources.AddResource(r.Context(), a, in, image.upload())
	if err != nil {
		writeError(w, h.logger, "add resource", err)
		return
	}
	response.Created(w, res)
}

// Update handles PUT /resources/{id}. Only the fields present in the form change.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	form, image, err := readResourceForm(w, r)
	if err != nil {
		writeError(w, h.logger, "update resource", err)
		return
	}
	if image != nil {
		defer image.close()
	}

	patch, err := resourcePatch(form)
	if err != nil {
		writeError(w, h.logger, "update resource", err)
		return
	}

	res, err := h.resources.UpdateResource(r.Context(), a, id, patch, image.upload())
	if err != nil {
		writeError(w, h.logger, "update resource", err)
		return
	}
	response.OK(w, res)
}

func resourcePatch(form url.Values) (domain.ResourcePatch, error) {
	var p domain.ResourcePatch
	str := func(key string) *string {
		if _, ok := form[key]; !ok {
			return nil
		}
		v := form.Get(key)
		return &v
	}

	p.Title = str("title")
	p.Description = str("description")
	p.Content = str("content")
	p.Category = str("category")
	p.DownloadURL = str("downloadUrl")
	p.VideoURL = str("videoUrl")
	if v := str("resourceType"); v != nil {
		t := domain.ResourceType(strings.ToLower(*v))
		p.ResourceType = &t
	}
	if v := str("level"); v != nil {
		l := domain.ResourceLevel(strings.ToLower(*v))
		p.Level = &l
	}
	if _, ok := form["tags"]; ok {
		tags := formTags(form["tags"])
		p.Tags = &tags
	}
	if _, ok := form["isExclusive"]; ok {
		b, err := formBool(form, "isExclusive")
		if err != nil {
			return p, err
		}
		p.IsExclusive = &b
	}

	var err error
	if p.ReadTime, err = formInt(form, "readTime"); err != nil {
		return p, err
	}
	if p.Duration, err = formInt(form, "duration"); err != nil {
		return p, err
	}
	return p, nil
}

type formFile struct {
	file   multipart.File
	header *multipart.FileHeader
}

func (f *formFile) upload() *domain.Upload {
	if f == nil {
		return nil
	}
	return &domain.Upload{
		Reader:      f.file,
		Filename:    f.header.Filename,
		ContentType: f.header.Header.Get("Content-Type"),
	}
}

func (f *formFile) close() {
	_ = f.file.Close()
}

// readResourceForm accepts multipart or urlencoded bodies. The image part is optional.
func readResourceForm(w http.ResponseWriter, r *http.Request) (url.Values, *formFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, nil, domain.Validation("invalid form body")
		}
		return r.PostForm, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, domain.Validation("upload exceeds %d MB", maxUploadSize>>20)
		}
		return nil, nil, domain.Validation("invalid multipart body")
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return r.MultipartForm.Value, nil, nil
	}
	if err != nil {
		return nil, nil, domain.Validation("invalid image upload")
	}
	if !allowedUploadExt[strings.ToLower(filepath.Ext(header.Filename))] {
		_ = file.Close()
		return nil, nil, domain.Validation("unsupported file type")
	}
	return r.MultipartForm.Value, &formFile{file: file, header: header}, nil
}

// formTags accepts repeated fields and comma separated lists alike
func formTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func formBool(form url.Values, key string) (bool, error) {
	raw := form.Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.Validation("%s must be a boolean", key)
	}
	return b, nil
}

func formInt(form url.Values, key string) (*int, error) {
	raw := form.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, domain.Validation("%s must be a non-negative integer", key)
	}
	return &n, nil
}

// Access handles POST /resources/{id}/access
func (h *ResourceHandler) Access(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.resources.AccessResource(r.Context(), id, a); err != nil {
		writeError(w, h.logger, "access resource", err)
		return
	}
	response.OK(w, map[string]string{"message": "access recorded"})
}

// View handles POST /resources/{id}/view
func (h *ResourceHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.resources.TrackView(r.Context(), id); err != nil {
		writeError(w, h.logger, "track view", err)
		return
	}
	response.OK(w, map[string]string{"message": "view recorded"})
}

// Like handles POST /resources/{id}/like
func (h *ResourceHandler) Like(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.resources.ToggleLike(r.Context(), id, a)
	if err != nil {
		writeError(w, h.logger, "like resource", err)
		return
	}
	response.OK(w, res)
}

// Bookmark handles POST /resources/{id}/bookmark
func (h *ResourceHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.resources.ToggleBookmark(r.Context(), id, a)
	if err != nil {
		writeError(w, h.logger, "bookmark resource", err)
		return
	}
	response.OK(w, res)
}

// Comments handles GET /resources/{id}/comments?sortBy=&page=&limit=
func (h *ResourceHandler) Comments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	page, err := h.resources.GetComments(r.Context(), id,
		domain.CommentSort(r.URL.Query().Get("sortBy")),
		queryInt(r, "page", 1),
		queryInt(r, "limit", defaultCommentPageSize))
	if err != nil {
		writeError(w, h.logger, "list comments", err)
		return
	}
	response.OK(w, page)
}

// Commenters handles GET /resources/{id}/commenters
func (h *ResourceHandler) Commenters(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commenters, err := h.resources.GetCommenters(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "list commenters", err)
		return
	}
	response.OK(w, commenters)
}

// AddComment handles POST /resources/{id}/comments
func (h *ResourceHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body commentBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "add comment", err)
		return
	}
	comment, err := h.resources.AddComment(r.Context(), id, a, body.Comment)
	if err != nil {
		writeError(w, h.logger, "add comment", err)
		return
	}
	response.Created(w, comment)
}

// LikeComment handles POST /resources/{id}/comments/{commentId}/like
func (h *ResourceHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	resourceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentId")
	if !ok {
		return
	}
	res, err := h.resources.LikeComment(r.Context(), resourceID, commentID, a)
	if err != nil {
		writeError(w, h.logger, "like comment", err)
		return
	}
	response.OK(w, res)
}

// ReplyToComment handles POST /resources/{id}/comments/{commentId}/replies
func (h *ResourceHandler) ReplyToComment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	resourceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentId")
	if !ok {
		return
	}
	var body commentReplyBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, "reply to comment", err)
		return
	}
	reply, err := h.resources.ReplyToComment(r.Context(), resourceID, commentID, a, body.Text)
	if err != nil {
		writeError(w, h.logger, "reply to comment", err)
		return
	}
	response.Created(w, reply)
}

// DeleteComment handles DELETE /resources/{id}/comments/{commentId}
func (h *ResourceHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	resourceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentId")
	if !ok {
		return
	}
	if err := h.resources.DeleteComment(r.Context(), resourceID, commentID, a); err != nil {
		writeError(w, h.logger, "delete comment", err)
		return
	}
	response.OK(w, map[string]string{"message": "comment deleted"})
}
