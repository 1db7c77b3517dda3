package ui

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/posts"
	"github.com/UkralStul/postboard/internal/remote"
	"github.com/UkralStul/postboard/internal/server"
	"github.com/UkralStul/postboard/internal/storage/inmemory"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newSurface(t *testing.T, confirm posts.Confirmer) (*Surface, *posts.Controller) {
	t.Helper()
	srv := server.New(inmemory.New(), quiet)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	ctl := posts.New(remote.New(ts.URL+server.BasePath, remote.WithLogger(quiet)), posts.WithLogger(quiet))
	return NewSurface(ctl, confirm), ctl
}

func TestSurface_CreateClearsDraftOnSuccess(t *testing.T) {
	s, ctl := newSurface(t, Always(true))
	ctx := context.Background()

	s.SetAuthor("Amy")
	s.SetContent("hello")
	post, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Amy", post.Author)

	assert.Equal(t, Form{}, s.Form())
	assert.Len(t, ctl.Snapshot().Posts, 1)
}

func TestSurface_FailedSubmitKeepsDraft(t *testing.T) {
	s, ctl := newSurface(t, Always(true))

	s.SetAuthor("Amy")
	s.SetContent("   ")
	_, err := s.Submit(context.Background())
	require.Error(t, err)

	form := s.Form()
	assert.Equal(t, domain.Draft{Author: "Amy", Content: "   "}, form.Draft)
	assert.Equal(t, "post content cannot be empty", form.Err)
	assert.False(t, form.Saving)
	assert.Empty(t, ctl.Snapshot().Posts)
	assert.Equal(t, "post content cannot be empty", ctl.Snapshot().Err)
}

func TestSurface_EditSession(t *testing.T) {
	s, ctl := newSurface(t, Always(true))
	ctx := context.Background()

	s.SetContent("first")
	post, err := s.Submit(ctx)
	require.NoError(t, err)

	require.NoError(t, s.BeginEdit(post.ID))
	assert.Equal(t, post.ID, s.Form().Target)
	assert.Equal(t, "first", s.Form().Draft.Content)

	s.SetContent("second")
	_, err = s.Submit(ctx)
	require.NoError(t, err)

	assert.Equal(t, Form{}, s.Form())
	st := ctl.Snapshot()
	assert.Nil(t, st.Editing)
	assert.Equal(t, "second", st.Posts[0].Content)

	assert.Error(t, s.BeginEdit("missing"))
}

func TestSurface_CancelReturnsToCreate(t *testing.T) {
	s, ctl := newSurface(t, Always(true))
	ctx := context.Background()

	s.SetContent("x")
	post, err := s.Submit(ctx)
	require.NoError(t, err)
	require.NoError(t, s.BeginEdit(post.ID))

	s.Cancel()
	assert.Equal(t, Form{}, s.Form())
	assert.Nil(t, ctl.Snapshot().Editing)
}

func TestSurface_DeleteHonoursConfirmation(t *testing.T) {
	answer := false
	s, ctl := newSurface(t, ConfirmFunc(func(context.Context, string) (bool, error) { return answer, nil }))
	ctx := context.Background()

	s.SetContent("x")
	post, err := s.Submit(ctx)
	require.NoError(t, err)
	require.NoError(t, s.BeginEdit(post.ID))

	deleted, err := s.Delete(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, ctl.Snapshot().Posts, 1)
	assert.Equal(t, post.ID, s.Form().Target)

	answer = true
	deleted, err = s.Delete(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, ctl.Snapshot().Posts)
	assert.Equal(t, Form{}, s.Form())
}

func TestPromptConfirmer(t *testing.T) {
	var out bytes.Buffer
	c := NewPromptConfirmer(strings.NewReader("y\nno\nYES\n"), &out)
	ctx := context.Background()

	for _, want := range []bool{true, false, true, false} {
		got, err := c.Confirm(ctx, "Delete this post?")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, strings.Repeat("Delete this post? [y/N] ", 4), out.String())
}

func TestRender_EmptyAndLoading(t *testing.T) {
	r := NewRenderer(time.UTC)
	var buf bytes.Buffer

	require.NoError(t, r.Render(&buf, posts.State{}, Form{}))
	assert.Contains(t, buf.String(), "Create a post")
	assert.Contains(t, buf.String(), "No posts yet.")

	buf.Reset()
	require.NoError(t, r.Render(&buf, posts.State{Loading: true, Err: "Failed to load posts: boom"}, Form{Target: "7", Err: "nope"}))
	out := buf.String()
	assert.Contains(t, out, "Edit post 7")
	assert.Contains(t, out, "Loading...")
	assert.Contains(t, out, "error: Failed to load posts: boom")
	assert.Contains(t, out, "! nope")
	assert.NotContains(t, out, "No posts yet.")
}

func TestRender_Posts(t *testing.T) {
	r := NewRenderer(time.UTC)
	var buf bytes.Buffer
	state := posts.State{Posts: []domain.Post{
		{ID: "1", Content: "hi", CreatedAt: "2024-01-01T10:00:00Z"},
		{ID: "2", Author: "Amy", Content: "hello", ImageURL: "http://img/a.png", ModifiedAt: "soon"},
	}}

	require.NoError(t, r.Render(&buf, state, Form{}))
	out := buf.String()
	assert.Contains(t, out, "[1] Anonymous")
	assert.Contains(t, out, "Created:  2024-01-01 10:00:00")
	assert.Contains(t, out, "Modified: -")
	assert.Contains(t, out, "[2] Amy")
	assert.Contains(t, out, "Modified: soon")
	assert.Contains(t, out, "image: http://img/a.png")
	assert.Less(t, strings.Index(out, "[1]"), strings.Index(out, "[2]"))
}

func TestSurface_SubmitServerMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"content too spicy"}`)
	}))
	defer ts.Close()
	ctl := posts.New(remote.New(ts.URL, remote.WithLogger(quiet)), posts.WithLogger(quiet))
	s := NewSurface(ctl, Always(true))

	s.SetContent("x")
	_, err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "content too spicy", s.Form().Err)
}

// stuckController accepts every update without leaving edit mode.
type stuckController struct {
	Controller
	editing domain.Post
}

func (c *stuckController) Snapshot() posts.State {
	e := c.editing
	return posts.State{Posts: []domain.Post{c.editing}, Editing: &e}
}

func (c *stuckController) Edit(id domain.ID) bool { return id == c.editing.ID }

func (c *stuckController) Update(_ context.Context, id domain.ID, d domain.Draft) (*domain.Post, error) {
	return &domain.Post{ID: id, Content: d.Content}, nil
}

func TestSurface_UnappliedUpdateKeepsDraft(t *testing.T) {
	ctl := &stuckController{editing: domain.Post{ID: "1", Content: "orig"}}
	s := NewSurface(ctl, Always(true))

	require.NoError(t, s.BeginEdit("1"))
	s.SetContent("changed")
	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	form := s.Form()
	assert.Equal(t, domain.ID("1"), form.Target)
	assert.Equal(t, "changed", form.Draft.Content)
	assert.False(t, form.Saving)
}
