// Package manager owns the client-side note state: the authoritative
// in-memory note list, the search/sort projection, and a debounced save
// pipeline that coalesces rapid edits into infrequent writes.
package manager

import (
	"context"
	"sync"
	"time"

	"nota/internal/domain"
)

type SaveStatus string

const (
	StatusSaved  SaveStatus = "saved"
	StatusSaving SaveStatus = "saving"
	StatusError  SaveStatus = "error"
)

type SaveState struct {
	Status    SaveStatus
	LastError string
}

// NotesAPI is the slice of the note-service call surface the manager drives.
// pkg/client.Client implements it.
type NotesAPI interface {
	Fetch(ctx context.Context) ([]*domain.Note, error)
	Create(ctx context.Context, req *domain.CreateNoteRequest) (*domain.Note, error)
	Update(ctx context.Context, noteID string, req *domain.UpdateNoteRequest) error
	UpdateMeta(ctx context.Context, noteID string, req *domain.UpdateNoteMetaRequest) error
	Delete(ctx context.Context, noteID string) error
	TogglePublic(ctx context.Context, noteID string, public bool) (*domain.Note, error)
}

type Options struct {
	ContentDelay time.Duration
	MetaDelay    time.Duration
	FlushTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.ContentDelay == 0 {
		o.ContentDelay = 700 * time.Millisecond
	}
	if o.MetaDelay == 0 {
		o.MetaDelay = 550 * time.Millisecond
	}
	if o.FlushTimeout == 0 {
		o.FlushTimeout = 10 * time.Second
	}
}

type contentPayload struct {
	Content string
	Title   string
}

// flight serializes flushes per note and kind: at most one request in the
// air, at most one follow-up queued, latest payload wins.
type flight struct {
	inFlight bool
	queued   bool
}

type Manager struct {
	api  NotesAPI
	opts Options

	mu             sync.Mutex
	notes          []*domain.Note
	searchTerm     string
	sortMode       SortMode
	saveState      map[string]SaveState
	pendingContent map[string]contentPayload
	pendingMeta    map[string]domain.UpdateNoteMetaRequest
	contentGen     map[string]uint64
	metaGen        map[string]uint64
	flights        map[string]*flight

	contentDebounce *debouncer
	metaDebounce    *debouncer
}

func New(api NotesAPI, opts Options) *Manager {
	opts.withDefaults()
	return &Manager{
		api:             api,
		opts:            opts,
		sortMode:        SortUpdatedDesc,
		saveState:       make(map[string]SaveState),
		pendingContent:  make(map[string]contentPayload),
		pendingMeta:     make(map[string]domain.UpdateNoteMetaRequest),
		contentGen:      make(map[string]uint64),
		metaGen:         make(map[string]uint64),
		flights:         make(map[string]*flight),
		contentDebounce: newDebouncer(opts.ContentDelay),
		metaDebounce:    newDebouncer(opts.MetaDelay),
	}
}

// Close cancels all pending debounce timers. Pending payloads are dropped;
// call Flush per note first if they matter.
func (m *Manager) Close() {
	m.contentDebounce.stop()
	m.metaDebounce.stop()
}

// Load replaces the note set with the server's view. Save states for notes
// not seen before are seeded as saved.
func (m *Manager) Load(ctx context.Context) error {
	notes, err := m.api.Fetch(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = notes
	for _, n := range notes {
		if _, ok := m.saveState[n.ID]; !ok {
			m.saveState[n.ID] = SaveState{Status: StatusSaved}
		}
	}
	return nil
}

func (m *Manager) Create(ctx context.Context, title, content, tags string) (*domain.Note, error) {
	note, err := m.api.Create(ctx, &domain.CreateNoteRequest{Title: title, Content: content, Tags: tags})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	m.saveState[note.ID] = SaveState{Status: StatusSaved}
	return note, nil
}

// EditContent records a keystroke-level content change: the in-memory note is
// updated immediately, the payload overwrites any unflushed one for this note,
// and the content debounce window restarts.
func (m *Manager) EditContent(noteID, content string) {
	m.mu.Lock()
	title := ""
	if n := m.findLocked(noteID); n != nil {
		n.Content = content
		title = n.Title
	}
	m.pendingContent[noteID] = contentPayload{Content: content, Title: title}
	m.contentGen[noteID]++
	m.saveState[noteID] = SaveState{Status: StatusSaving}
	m.mu.Unlock()

	m.contentDebounce.trigger("content:"+noteID, func() { m.flushContent(noteID) })
}

func (m *Manager) EditTitle(noteID, title string) {
	m.mergeMeta(noteID, func(n *domain.Note, patch *domain.UpdateNoteMetaRequest) {
		n.Title = title
		patch.Title = &title
	})
}

func (m *Manager) EditTags(noteID, tags string) {
	m.mergeMeta(noteID, func(n *domain.Note, patch *domain.UpdateNoteMetaRequest) {
		if tags == "" {
			n.Tags = nil
		} else {
			n.Tags = &tags
		}
		patch.Tags = &tags
	})
}

func (m *Manager) SetPinned(noteID string, pinned bool) {
	m.mergeMeta(noteID, func(n *domain.Note, patch *domain.UpdateNoteMetaRequest) {
		n.IsPinned = pinned
		patch.IsPinned = &pinned
	})
}

// mergeMeta folds one metadata field into the pending patch for the note.
// Metadata runs on its own, shorter debounce window, independent of content.
func (m *Manager) mergeMeta(noteID string, apply func(*domain.Note, *domain.UpdateNoteMetaRequest)) {
	m.mu.Lock()
	patch := m.pendingMeta[noteID]
	n := m.findLocked(noteID)
	if n == nil {
		m.mu.Unlock()
		return
	}
	apply(n, &patch)
	m.pendingMeta[noteID] = patch
	m.metaGen[noteID]++
	m.saveState[noteID] = SaveState{Status: StatusSaving}
	m.mu.Unlock()

	m.metaDebounce.trigger("meta:"+noteID, func() { m.flushMeta(noteID) })
}

// Flush force-sends any pending content and metadata for the note, bypassing
// the debounce timers. Used by an explicit save action and before anything
// that depends on up-to-date server state.
func (m *Manager) Flush(noteID string) {
	m.contentDebounce.cancel("content:" + noteID)
	m.metaDebounce.cancel("meta:" + noteID)
	m.flushContent(noteID)
	m.flushMeta(noteID)
}

func (m *Manager) flushContent(noteID string) {
	m.mu.Lock()
	fl := m.flightLocked("content:" + noteID)
	if fl.inFlight {
		fl.queued = true
		m.mu.Unlock()
		return
	}
	payload, ok := m.pendingContent[noteID]
	if !ok {
		m.mu.Unlock()
		return
	}
	gen := m.contentGen[noteID]
	fl.inFlight = true
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.FlushTimeout)
	err := m.api.Update(ctx, noteID, &domain.UpdateNoteRequest{Content: payload.Content, Title: payload.Title})
	cancel()

	m.mu.Lock()
	fl.inFlight = false
	requeue := fl.queued
	fl.queued = false
	if err != nil {
		// Keep the pending payload queued so the next debounce cycle or an
		// explicit flush retries with the latest accumulated content.
		m.saveState[noteID] = SaveState{Status: StatusError, LastError: err.Error()}
		requeue = false
	} else if m.contentGen[noteID] == gen {
		delete(m.pendingContent, noteID)
		m.reconcileLocked(noteID)
	}
	if _, stillPending := m.pendingContent[noteID]; !stillPending {
		requeue = false
	}
	m.mu.Unlock()

	if requeue {
		m.flushContent(noteID)
	}
}

func (m *Manager) flushMeta(noteID string) {
	m.mu.Lock()
	fl := m.flightLocked("meta:" + noteID)
	if fl.inFlight {
		fl.queued = true
		m.mu.Unlock()
		return
	}
	patch, ok := m.pendingMeta[noteID]
	if !ok {
		m.mu.Unlock()
		return
	}
	gen := m.metaGen[noteID]
	fl.inFlight = true
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.FlushTimeout)
	err := m.api.UpdateMeta(ctx, noteID, &patch)
	cancel()

	m.mu.Lock()
	fl.inFlight = false
	requeue := fl.queued
	fl.queued = false
	if err != nil {
		m.saveState[noteID] = SaveState{Status: StatusError, LastError: err.Error()}
		requeue = false
	} else if m.metaGen[noteID] == gen {
		delete(m.pendingMeta, noteID)
		m.reconcileLocked(noteID)
	}
	if _, stillPending := m.pendingMeta[noteID]; !stillPending {
		requeue = false
	}
	m.mu.Unlock()

	if requeue {
		m.flushMeta(noteID)
	}
}

// reconcileLocked marks the note saved once nothing is pending and bumps the
// local timestamp optimistically; a full reload replaces it with the server's.
func (m *Manager) reconcileLocked(noteID string) {
	if _, ok := m.pendingContent[noteID]; ok {
		return
	}
	if _, ok := m.pendingMeta[noteID]; ok {
		return
	}
	m.saveState[noteID] = SaveState{Status: StatusSaved}
	if n := m.findLocked(noteID); n != nil {
		n.UpdatedAt = time.Now().UTC()
	}
}

func (m *Manager) Delete(ctx context.Context, noteID string) error {
	if err := m.api.Delete(ctx, noteID); err != nil {
		return err
	}

	m.contentDebounce.cancel("content:" + noteID)
	m.metaDebounce.cancel("meta:" + noteID)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notes {
		if n.ID == noteID {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			break
		}
	}
	delete(m.saveState, noteID)
	delete(m.pendingContent, noteID)
	delete(m.pendingMeta, noteID)
	return nil
}

func (m *Manager) TogglePublic(ctx context.Context, noteID string, public bool) (*domain.Note, error) {
	updated, err := m.api.TogglePublic(ctx, noteID, public)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notes {
		if n.ID == updated.ID {
			m.notes[i] = updated
			break
		}
	}
	return updated, nil
}

func (m *Manager) State(noteID string) SaveState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.saveState[noteID]; ok {
		return st
	}
	return SaveState{Status: StatusSaved}
}

func (m *Manager) findLocked(noteID string) *domain.Note {
	for _, n := range m.notes {
		if n.ID == noteID {
			return n
		}
	}
	return nil
}

func (m *Manager) flightLocked(key string) *flight {
	fl, ok := m.flights[key]
	if !ok {
		fl = &flight{}
		m.flights[key] = fl
	}
	return fl
}
