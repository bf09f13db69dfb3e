package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

// Values leave and enter the store as deep copies so callers can mutate
// what they load without touching stored state.

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.ChapterID = clonePtr(u.ChapterID)
	c.LastActive = clonePtr(u.LastActive)
	return &c
}

func cloneChapter(ch *domain.Chapter) *domain.Chapter {
	c := *ch
	return &c
}

func cloneConnection(conn *domain.Connection) *domain.Connection {
	c := *conn
	c.LastContact = clonePtr(conn.LastContact)
	c.NextFollowUp = clonePtr(conn.NextFollowUp)
	c.Notes = cloneSlice(conn.Notes)
	c.Tags = cloneSlice(conn.Tags)
	c.CommunicationHistory = cloneSlice(conn.CommunicationHistory)
	return &c
}

func cloneCategory(cat *domain.Category) *domain.Category {
	c := *cat
	return &c
}

func cloneTopic(t *domain.Topic) *domain.Topic {
	c := *t
	c.CategoryID = clonePtr(t.CategoryID)
	c.Tags = cloneSlice(t.Tags)
	c.Replies = cloneSlice(t.Replies)
	c.LastReplyAt = clonePtr(t.LastReplyAt)
	c.LastReplyBy = clonePtr(t.LastReplyBy)
	return &c
}

func cloneReply(r *domain.Reply) *domain.Reply {
	c := *r
	c.Likes = cloneSlice(r.Likes)
	c.ParentReplyID = clonePtr(r.ParentReplyID)
	return &c
}

func cloneResource(r *domain.Resource) *domain.Resource {
	c := *r
	c.ReadTime = clonePtr(r.ReadTime)
	c.Duration = clonePtr(r.Duration)
	c.Tags = cloneSlice(r.Tags)
	c.Likes = cloneSlice(r.Likes)
	c.Bookmarks = cloneSlice(r.Bookmarks)
	c.AccessedBy = cloneSlice(r.AccessedBy)
	c.Commenters = cloneSlice(r.Commenters)
	c.Comments = make([]domain.Comment, len(r.Comments))
	for i, cm := range r.Comments {
		cm.Likes = cloneSlice(cm.Likes)
		cm.Replies = cloneSlice(cm.Replies)
		c.Comments[i] = cm
	}
	return &c
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
