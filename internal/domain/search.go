package domain

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type SearchScope string

const (
	ScopeAll         SearchScope = "all"
	ScopeConnections SearchScope = "connections"
	ScopePending     SearchScope = "pending"
	ScopeChapter     SearchScope = "chapter"
)

type SearchSort string

const (
	SortByName     SearchSort = "name"
	SortByCompany  SearchSort = "company"
	SortByIndustry SearchSort = "industry"
	SortByRecent   SearchSort = "recent"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchParams are the network search inputs
type SearchParams struct {
	Query    string
	Type     SearchScope
	Industry string
	Company  string
	SortBy   SearchSort
	Page     int
	Limit    int
}

func (p *SearchParams) normalize() {
	switch p.Type {
	case ScopeConnections, ScopePending, ScopeChapter:
	default:
		p.Type = ScopeAll
	}
	switch p.SortBy {
	case SortByCompany, SortByIndustry, SortByRecent:
	default:
		p.SortBy = SortByName
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultSearchLimit
	}
	if p.Limit > maxSearchLimit {
		p.Limit = maxSearchLimit
	}
	p.Query = strings.TrimSpace(p.Query)
}

// SearchResult is one member row of a network search
type SearchResult struct {
	UserSummary
	ConnectionID   *uuid.UUID `json:"connectionId,omitempty"`
	ConnectionType string     `json:"connectionType,omitempty"`
	ChapterName    string     `json:"chapterName,omitempty"`
	Location       string     `json:"location,omitempty"`
	ConnectionDate *time.Time `json:"connectionDate,omitempty"`
	RequestDate    *time.Time `json:"requestDate,omitempty"`
}

// recency is the date used by the "recent" ordering
func (r SearchResult) recency() time.Time {
	switch {
	case r.ConnectionDate != nil:
		return *r.ConnectionDate
	case r.RequestDate != nil:
		return *r.RequestDate
	case r.LastActive != nil:
		return *r.LastActive
	}
	return time.Time{}
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func newPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

// maxOffset caps store offsets; pages past it are empty anyway.
const maxOffset = math.MaxInt32

// pageBounds returns the [start, end) slice window for page/limit over total.
// Pages past the end yield an empty window.
func pageBounds(total, page, limit int) (int, int) {
	if page < 1 || limit < 1 {
		return 0, 0
	}
	if page-1 > total/limit {
		return total, total
	}
	start := (page - 1) * limit
	end := total
	if limit < total-start {
		end = start + limit
	}
	return start, end
}

// pageOffset is the store offset of page, clamped to maxOffset
func pageOffset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > maxOffset/limit {
		return maxOffset
	}
	return (page - 1) * limit
}

type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	Pagination Pagination     `json:"pagination"`
}

type searchFilter struct {
	query    string
	industry string
	company  string
}

func (f searchFilter) match(u UserSummary) bool {
	if f.query != "" && !matchesText(u, f.query) {
		return false
	}
	if f.industry != "" && u.Industry != f.industry {
		return false
	}
	if f.company != "" && !strings.Contains(strings.ToLower(u.Company), strings.ToLower(f.company)) {
		return false
	}
	return true
}

func matchesText(u UserSummary, query string) bool {
	haystack := strings.ToLower(strings.Join([]string{u.Name, u.Title, u.Company, u.Industry}, " "))
	return strings.Contains(haystack, strings.ToLower(query))
}

// Search looks across the user's accepted connections, incoming requests and
// chapter peers. The three subsets are read concurrently; each is filtered
// independently and tagged with its source when the scope is "all".
func (s *ConnectionService) Search(ctx context.Context, userID uuid.UUID, p SearchParams) (*SearchResponse, error) {
	p.normalize()
	f := searchFilter{query: p.Query, industry: p.Industry, company: p.Company}

	var connections, pending, chapter []SearchResult
	g, gctx := errgroup.WithContext(ctx)
	if p.Type == ScopeAll || p.Type == ScopeConnections {
		g.Go(func() (err error) {
			connections, err = s.searchConnections(gctx, userID, f)
			return err
		})
	}
	if p.Type == ScopeAll || p.Type == ScopePending {
		g.Go(func() (err error) {
			pending, err = s.searchPending(gctx, userID, f)
			return err
		})
	}
	if p.Type == ScopeAll || p.Type == ScopeChapter {
		g.Go(func() (err error) {
			chapter, err = s.searchChapter(gctx, userID, f)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if p.Type == ScopeAll {
		tag(connections, "connection")
		tag(pending, "pending")
		tag(chapter, "chapter")
	}

	results := make([]SearchResult, 0, len(connections)+len(pending)+len(chapter))
	results = append(results, connections...)
	results = append(results, pending...)
	results = append(results, chapter...)
	sortResults(results, p.SortBy)

	start, end := pageBounds(len(results), p.Page, p.Limit)
	return &SearchResponse{
		Results:    results[start:end],
		Pagination: newPagination(len(results), p.Page, p.Limit),
	}, nil
}

func tag(rs []SearchResult, kind string) {
	for i := range rs {
		rs[i].ConnectionType = kind
	}
}

func sortResults(rs []SearchResult, by SearchSort) {
	var less func(a, b SearchResult) bool
	switch by {
	case SortByRecent:
		less = func(a, b SearchResult) bool { return a.recency().After(b.recency()) }
	case SortByCompany:
		less = func(a, b SearchResult) bool { return strings.ToLower(a.Company) < strings.ToLower(b.Company) }
	case SortByIndustry:
		less = func(a, b SearchResult) bool { return strings.ToLower(a.Industry) < strings.ToLower(b.Industry) }
	default:
		less = func(a, b SearchResult) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	}
	sort.SliceStable(rs, func(i, j int) bool { return less(rs[i], rs[j]) })
}

func (s *ConnectionService) searchConnections(ctx context.Context, userID uuid.UUID, f searchFilter) ([]SearchResult, error) {
	views, err := s.acceptedViews(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(views))
	for _, v := range views {
		if !f.match(v.UserSummary) {
			continue
		}
		id, date := v.ConnectionID, v.ConnectionDate
		out = append(out, SearchResult{UserSummary: v.UserSummary, ConnectionID: &id, ConnectionDate: &date})
	}
	return out, nil
}

func (s *ConnectionService) searchPending(ctx context.Context, userID uuid.UUID, f searchFilter) ([]SearchResult, error) {
	requests, err := s.PendingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(requests))
	for _, r := range requests {
		if !f.match(r.Requester) {
			continue
		}
		id, date := r.ID, r.RequestDate
		out = append(out, SearchResult{UserSummary: r.Requester, ConnectionID: &id, RequestDate: &date})
	}
	return out, nil
}

func (s *ConnectionService) searchChapter(ctx context.Context, userID uuid.UUID, f searchFilter) ([]SearchResult, error) {
	view, err := s.ChapterMembers(ctx, userID)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]SearchResult, 0, len(view.Members))
	for _, m := range view.Members {
		if !f.match(m) {
			continue
		}
		out = append(out, SearchResult{UserSummary: m, ChapterName: view.ChapterName, Location: view.Location})
	}
	return out, nil
}
