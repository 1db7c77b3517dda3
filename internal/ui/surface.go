// Package ui is the editing surface: it holds the single uncommitted draft,
// forwards user intent to the controller and renders state as text.
package ui

import (
	"context"
	"fmt"
	"sync"

	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/posts"
)

// Controller is what the surface needs from posts.Controller.
type Controller interface {
	Snapshot() posts.State
	Create(ctx context.Context, draft domain.Draft) (*domain.Post, error)
	Update(ctx context.Context, id domain.ID, draft domain.Draft) (*domain.Post, error)
	Delete(ctx context.Context, id domain.ID, confirm posts.Confirmer) (bool, error)
	Edit(id domain.ID) bool
	CancelEdit()
}

// Form is a snapshot of the draft being composed.
type Form struct {
	// Target is the post being edited; empty in create mode.
	Target domain.ID
	Draft  domain.Draft
	Err    string
	Saving bool
}

// Surface keeps one draft at a time. The draft is cleared only after the
// server confirms a submit.
type Surface struct {
	ctl     Controller
	confirm posts.Confirmer

	mu   sync.Mutex
	form Form
}

func NewSurface(ctl Controller, confirm posts.Confirmer) *Surface {
	return &Surface{ctl: ctl, confirm: confirm}
}

// Form returns the current draft state.
func (s *Surface) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// BeginCreate discards any draft and switches to create mode.
func (s *Surface) BeginCreate() {
	s.ctl.CancelEdit()
	s.mu.Lock()
	s.form = Form{}
	s.mu.Unlock()
}

// BeginEdit loads post id into the draft, replacing any other edit session.
func (s *Surface) BeginEdit(id domain.ID) error {
	if !s.ctl.Edit(id) {
		return fmt.Errorf("post %s is not listed", id)
	}
	editing := s.ctl.Snapshot().Editing
	if editing == nil {
		return fmt.Errorf("post %s is not listed", id)
	}
	s.mu.Lock()
	s.form = Form{Target: editing.ID, Draft: domain.DraftOf(*editing)}
	s.mu.Unlock()
	return nil
}

func (s *Surface) SetAuthor(v string) { s.edit(func(d *domain.Draft) { d.Author = v }) }

func (s *Surface) SetContent(v string) { s.edit(func(d *domain.Draft) { d.Content = v }) }

func (s *Surface) SetImageURL(v string) { s.edit(func(d *domain.Draft) { d.ImageURL = v }) }

func (s *Surface) edit(fn func(*domain.Draft)) {
	s.mu.Lock()
	fn(&s.form.Draft)
	s.mu.Unlock()
}

// Submit sends the draft as a create or an update. On failure the draft and
// the edit target are kept and the form error is set. The draft is also kept
// when the controller did not apply the update and still edits the target.
func (s *Surface) Submit(ctx context.Context) (*domain.Post, error) {
	s.mu.Lock()
	if s.form.Saving {
		s.mu.Unlock()
		return nil, fmt.Errorf("a save is already in progress")
	}
	s.form.Saving = true
	s.form.Err = ""
	target, draft := s.form.Target, s.form.Draft
	s.mu.Unlock()

	var (
		post *domain.Post
		err  error
	)
	if target == "" {
		post, err = s.ctl.Create(ctx, draft)
	} else {
		post, err = s.ctl.Update(ctx, target, draft)
	}

	// a superseded update is not applied and leaves the post in edit mode
	stillEditing := false
	if err == nil && target != "" {
		if e := s.ctl.Snapshot().Editing; e != nil && e.ID == target {
			stillEditing = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Saving = false
	if err != nil {
		s.form.Err = err.Error()
		return nil, err
	}
	if stillEditing {
		return post, nil
	}
	s.form = Form{}
	return post, nil
}

// Cancel abandons the draft and returns to create mode.
func (s *Surface) Cancel() { s.BeginCreate() }

// Delete removes post id after confirmation. Deleting the post being edited
// also discards the draft.
func (s *Surface) Delete(ctx context.Context, id domain.ID) (bool, error) {
	deleted, err := s.ctl.Delete(ctx, id, s.confirm)
	if deleted {
		s.mu.Lock()
		if s.form.Target == id {
			s.form = Form{}
		}
		s.mu.Unlock()
	}
	return deleted, err
}
