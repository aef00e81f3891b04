// Package history keeps a document's reading position in sync with the
// server.
//
// A Store owns the versioned position for one document. Local updates are
// debounced and only mark the store dirty; a single background loop flushes
// dirty positions every interval and keeps retrying on failure. The server
// applies optimistic concurrency on the version the client sends.
//
// # Usage
//
//	store := history.New(bookID, gw, notifier, history.Config{})
//	if store == nil {
//	    // sync disabled
//	}
//	defer store.Close()
//	pos, err := store.Get(ctx) // arms the save loop
//	store.Update("epubcfi(/6/4!/4/2)")
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/reader/internal/debounce"
	"github.com/mrlokans/reader/internal/gateway"
	"github.com/mrlokans/reader/internal/notify"
)

const (
	DefaultInterval          = 10 * time.Second
	DefaultUpdateWait        = 500 * time.Millisecond
	DefaultLoadNoticeTimeout = 5 * time.Second
)

// Position is an opaque renderer location token.
type Position string

// Record is the server-side position document.
type Record struct {
	Data    string `json:"data"`
	Version *int64 `json:"version,omitempty"`
}

type versionResponse struct {
	Version int64 `json:"version"`
}

// Requester performs a request and returns the raw response.
// *gateway.Gateway satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body any) (*gateway.Response, error)
}

// Config tunes a Store. Zero values fall back to defaults.
type Config struct {
	Schedule          cron.Schedule // save cadence, default every 10s
	UpdateWait        time.Duration // Update debounce window
	LoadNoticeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Schedule == nil {
		c.Schedule = cron.Every(DefaultInterval)
	}
	if c.UpdateWait <= 0 {
		c.UpdateWait = DefaultUpdateWait
	}
	if c.LoadNoticeTimeout <= 0 {
		c.LoadNoticeTimeout = DefaultLoadNoticeTimeout
	}
	return c
}

// Store is the reading position of one document for one session.
// A nil *Store is a disabled store: every method is a no-op.
type Store struct {
	documentID string
	requester  Requester
	notifier   notify.Notifier
	config     Config
	update     *debounce.Debouncer[Position]

	mu      sync.Mutex
	current Position
	version *int64
	dirty   bool

	ctx     context.Context
	cancel  context.CancelFunc
	armOnce sync.Once
	armed   bool
	retryCh chan struct{}
	doneCh  chan struct{}
}

// New creates the Store for documentID. It returns nil when documentID is
// empty, which disables synchronization.
func New(documentID string, requester Requester, notifier notify.Notifier, config Config) *Store {
	if documentID == "" {
		return nil
	}
	if notifier == nil {
		notifier = notify.Discard
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		documentID: documentID,
		requester:  requester,
		notifier:   notifier,
		config:     config.withDefaults(),
		ctx:        ctx,
		cancel:     cancel,
		retryCh:    make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
	}
	s.update = debounce.New(s.config.UpdateWait, s.record)
	return s
}

// DocumentID returns the document the store syncs.
func (s *Store) DocumentID() string {
	if s == nil {
		return ""
	}
	return s.documentID
}

// Update records p as the current position once the debounce window has
// passed without further updates. It performs no I/O.
func (s *Store) Update(p Position) {
	if s == nil {
		return
	}
	s.update.Call(p)
}

func (s *Store) record(p Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != p {
		s.current = p
		s.dirty = true
	}
}

// CurrentPosition returns the last recorded or restored position.
func (s *Store) CurrentPosition() Position {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Version returns the last version observed from the server.
func (s *Store) Version() (int64, bool) {
	if s == nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == nil {
		return 0, false
	}
	return *s.version, true
}

// Dirty reports whether the current position still needs saving.
func (s *Store) Dirty() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Get fetches the stored position. Whatever the outcome, the periodic save
// loop is armed afterwards so local edits are not lost. It should be called
// once per session: a second call overwrites unsaved local edits.
func (s *Store) Get(ctx context.Context) (Position, error) {
	if s == nil {
		return "", ErrDisabled
	}
	defer s.arm()

	resp, err := s.requester.Do(ctx, http.MethodGet, s.path("get"), nil)
	if err != nil {
		s.loadFailed(err.Error())
		return "", fmt.Errorf("get history failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.loadFailed(resp.Text())
		return "", &StatusError{
			Op:         "get",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    resp.Text(),
		}
	}

	var rec Record
	if err := json.Unmarshal(resp.Body, &rec); err != nil {
		s.loadFailed("malformed response")
		return "", fmt.Errorf("decode history: %w", err)
	}

	s.mu.Lock()
	if rec.Version != nil {
		v := *rec.Version
		s.version = &v
	}
	if rec.Data != "" {
		s.current = Position(rec.Data)
		s.dirty = false
	}
	s.mu.Unlock()

	if rec.Data == "" {
		s.loadFailed(ErrNoSavedPosition.Error())
		return "", ErrNoSavedPosition
	}

	log.Printf("[HISTORY] Restored position for %s (version %s)", s.documentID, formatVersion(rec.Version))
	return Position(rec.Data), nil
}

func (s *Store) loadFailed(message string) {
	log.Printf("[HISTORY] get history failed for %s: %s", s.documentID, message)
	s.notifier.Notify(notify.Notice{
		Kind:    notify.Transient,
		Message: "get history failed. message: " + message,
		Timeout: s.config.LoadNoticeTimeout,
	})
}

// arm starts the save loop the first time it is called.
func (s *Store) arm() {
	s.armOnce.Do(func() {
		s.mu.Lock()
		s.armed = true
		s.mu.Unlock()
		go s.run()
	})
}

// Armed reports whether the save loop is running.
func (s *Store) Armed() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Retry requests an immediate save outside the normal cadence. The attempt
// runs on the save loop, so it never overlaps a scheduled one.
func (s *Store) Retry() {
	if s == nil {
		return
	}
	select {
	case s.retryCh <- struct{}{}:
	default:
	}
}

// Close stops the save loop and drops any pending Update. Nothing is
// flushed: an unsaved position is lost.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.update.Stop()
	s.cancel()

	s.mu.Lock()
	armed := s.armed
	s.mu.Unlock()
	if armed {
		<-s.doneCh
	}
}

func (s *Store) path(op string) string {
	return fmt.Sprintf("/history/%s/%s", op, url.PathEscape(s.documentID))
}

func formatVersion(v *int64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *v)
}
