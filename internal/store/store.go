// Package store is the entity store facade. It puts two repositories behind
// one type: the SQLite tier for issues and photos, which supports multi-row
// transactions, and the key-value tier for rooms, assignees and the last
// selected room, which does not.
//
// Writes that span both tiers are not atomic. Config-tier writes always
// replace a whole value, so repeating a half-finished sequence is safe.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ALT-F4-LLC/pasfini/internal/db"
	"github.com/ALT-F4-LLC/pasfini/internal/kv"
	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

// Config-tier keys.
const (
	keyRooms     = "rooms"
	keyAssignees = "assignees"
	keyLastRoom  = "lastRoom"
)

// DefaultCacheSize is the number of photo records kept in memory.
const DefaultCacheSize = 64

// Store is an entity store instance. Instances share nothing; tests can run
// several side by side.
type Store struct {
	conn   *sql.DB
	cfg    *kv.Store
	photos *lru.Cache[string, *model.Photo]
	log    *slog.Logger
	now    func() time.Time

	cacheSize int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used for updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCacheSize sets how many photo records are cached.
func WithCacheSize(n int) Option {
	return func(s *Store) { s.cacheSize = n }
}

// New builds a store over an initialized database handle and a config map.
func New(conn *sql.DB, cfg *kv.Store, opts ...Option) (*Store, error) {
	s := &Store{
		conn:      conn,
		cfg:       cfg,
		log:       slog.Default(),
		now:       time.Now,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := lru.New[string, *model.Photo](max(s.cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("creating photo cache: %w", err)
	}
	s.photos = cache
	return s, nil
}

// Open opens the database at dbPath, brings its schema up to date and loads
// the config map at kvPath.
func Open(dbPath, kvPath string, opts ...Option) (*Store, error) {
	conn, err := db.Open(dbPath)
	if err != nil {
		return nil, wrap("open", err)
	}
	if err := db.Initialize(conn); err != nil {
		conn.Close()
		return nil, wrap("initialize", err)
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, wrap("migrate", err)
	}

	cfg, err := kv.Open(kvPath)
	if err != nil {
		conn.Close()
		return nil, wrap("open config", err)
	}

	s, err := New(conn, cfg, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SchemaVersion reports the database schema version.
func (s *Store) SchemaVersion() (int, error) {
	v, err := db.SchemaVersion(s.conn)
	if err != nil {
		return 0, wrap("schema version", err)
	}
	return v, nil
}

// Now returns the store's current time, truncated to the millisecond
// precision timestamps are stored with.
func (s *Store) Now() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// --- config tier ---

// ListRooms returns the saved room list, or the default rooms when none was
// ever saved.
func (s *Store) ListRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	ok, err := s.getJSON(ctx, keyRooms, &rooms)
	if err != nil {
		return nil, wrap("list rooms", err)
	}
	if !ok {
		return model.DefaultRooms(), nil
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	return rooms, nil
}

// SaveRooms replaces the whole room list.
func (s *Store) SaveRooms(ctx context.Context, rooms []model.Room) error {
	if rooms == nil {
		rooms = []model.Room{}
	}
	return wrap("save rooms", s.setJSON(ctx, keyRooms, rooms))
}

// ListAssignees returns the saved assignee list, empty when none was saved.
func (s *Store) ListAssignees(ctx context.Context) ([]model.Assignee, error) {
	assignees := []model.Assignee{}
	if _, err := s.getJSON(ctx, keyAssignees, &assignees); err != nil {
		return nil, wrap("list assignees", err)
	}
	if assignees == nil {
		assignees = []model.Assignee{}
	}
	return assignees, nil
}

// SaveAssignees replaces the whole assignee list.
func (s *Store) SaveAssignees(ctx context.Context, assignees []model.Assignee) error {
	if assignees == nil {
		assignees = []model.Assignee{}
	}
	return wrap("save assignees", s.setJSON(ctx, keyAssignees, assignees))
}

// LastSelectedRoom returns the slug remembered by SetLastSelectedRoom, or "".
func (s *Store) LastSelectedRoom(ctx context.Context) (string, error) {
	v, _, err := s.cfg.Get(ctx, keyLastRoom)
	if err != nil {
		return "", wrap("get last room", err)
	}
	return v, nil
}

// SetLastSelectedRoom remembers slug as the default room for new issues. An
// empty slug forgets it.
func (s *Store) SetLastSelectedRoom(ctx context.Context, slug string) error {
	if slug == "" {
		return wrap("clear last room", s.cfg.Delete(ctx, keyLastRoom))
	}
	return wrap("set last room", s.cfg.Set(ctx, keyLastRoom, slug))
}

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.cfg.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.cfg.Set(ctx, key, string(data))
}

// --- transactional tier ---

// ListIssues returns every issue in creation order. Callers sort and group
// as they need.
func (s *Store) ListIssues(ctx context.Context) ([]*model.Issue, error) {
	issues, err := db.ListIssues(ctx, s.conn)
	return issues, wrap("list issues", err)
}

// GetIssue returns the issue with id or ErrNotFound.
func (s *Store) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	issue, err := db.GetIssue(ctx, s.conn, id)
	if err != nil {
		return nil, wrap("get issue", err)
	}
	return issue, nil
}

// PutIssue inserts or replaces the complete issue record.
func (s *Store) PutIssue(ctx context.Context, issue *model.Issue) error {
	return wrap("put issue", db.PutIssue(ctx, s.conn, issue))
}

// DeleteIssue removes an issue and all of its photos in one transaction.
func (s *Store) DeleteIssue(ctx context.Context, id string) error {
	err := db.DeleteIssue(ctx, s.conn, id)
	s.photos.Purge()
	if err != nil {
		return wrap("delete issue", err)
	}
	s.log.Debug("issue deleted", "issue_id", id)
	return nil
}

// SaveIssueWithPhotos writes an issue and exactly the given photo records in
// one transaction.
func (s *Store) SaveIssueWithPhotos(ctx context.Context, issue *model.Issue, photos []*model.Photo) error {
	err := db.SaveIssueWithPhotos(ctx, s.conn, issue, photos)
	s.photos.Purge()
	return wrap("save issue", err)
}

// RemovePhoto deletes one photo and drops it from its issue's photo list.
func (s *Store) RemovePhoto(ctx context.Context, issueID, photoID string) error {
	err := db.RemovePhoto(ctx, s.conn, issueID, photoID, s.Now())
	s.photos.Remove(photoID)
	return wrap("remove photo", err)
}

// PutPhoto inserts or replaces a photo record and appends it to its issue's
// photo list when missing. Its issue must exist.
func (s *Store) PutPhoto(ctx context.Context, p *model.Photo) error {
	err := db.AttachPhoto(ctx, s.conn, p, s.Now())
	s.photos.Remove(p.ID)
	return wrap("put photo", err)
}

// GetPhoto returns the photo with id or ErrNotFound.
func (s *Store) GetPhoto(ctx context.Context, id string) (*model.Photo, error) {
	if p, ok := s.photos.Get(id); ok {
		cp := *p
		return &cp, nil
	}

	p, err := db.GetPhoto(ctx, s.conn, id)
	if err != nil {
		return nil, wrap("get photo", err)
	}
	s.photos.Add(id, p)
	cp := *p
	return &cp, nil
}

// GetPhotosForIssue returns the photos of an issue in display order.
func (s *Store) GetPhotosForIssue(ctx context.Context, issueID string) ([]*model.Photo, error) {
	photos, err := db.GetPhotosForIssue(ctx, s.conn, issueID)
	if err != nil {
		return nil, wrap("get photos", err)
	}
	return photos, nil
}

// DeletePhoto removes a photo record and drops it from the photo list of the
// issue that owns it.
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	err := db.DetachPhoto(ctx, s.conn, id, s.Now())
	s.photos.Remove(id)
	return wrap("delete photo", err)
}

// IssueIDsWithPhoto returns the issues that list or own photoID.
func (s *Store) IssueIDsWithPhoto(ctx context.Context, photoID string) ([]string, error) {
	ids, err := db.IssueIDsWithPhoto(ctx, s.conn, photoID)
	return ids, wrap("find photo owners", err)
}

// CountIssues returns the number of stored issues.
func (s *Store) CountIssues(ctx context.Context) (int, error) {
	n, err := db.CountIssues(ctx, s.conn)
	return n, wrap("count issues", err)
}

// CountPhotos returns the number of stored photo records.
func (s *Store) CountPhotos(ctx context.Context) (int, error) {
	n, err := db.CountPhotos(ctx, s.conn)
	return n, wrap("count photos", err)
}

// SweepOrphanPhotos deletes photo records no issue lists.
func (s *Store) SweepOrphanPhotos(ctx context.Context) (int, error) {
	n, err := db.SweepOrphanPhotos(ctx, s.conn)
	s.photos.Purge()
	if err != nil {
		return 0, wrap("sweep photos", err)
	}
	if n > 0 {
		s.log.Info("orphan photos removed", "count", n)
	}
	return n, nil
}

// ClearAll erases every issue, photo and config entry. The transactional
// tier is cleared first; if the config tier then fails, rooms and
// assignees survive and the call can be repeated.
func (s *Store) ClearAll(ctx context.Context) error {
	err := db.ClearAll(ctx, s.conn)
	s.photos.Purge()
	if err != nil {
		return wrap("clear data", err)
	}
	if err := s.cfg.Clear(ctx); err != nil {
		return wrap("clear config", err)
	}
	s.log.Debug("store cleared")
	return nil
}
