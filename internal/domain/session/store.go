package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/agentsmonitor/backend/internal/infrastructure/monitoring"
	"github.com/agentsmonitor/backend/internal/logging"
	"github.com/agentsmonitor/backend/internal/shared/id"
	"github.com/agentsmonitor/backend/internal/shared/validate"
)

var (
	// ErrNotFound indicates no record exists for the session ID
	ErrNotFound = errors.New("session not found")
	// ErrInvalidID indicates the session ID is not a UUID
	ErrInvalidID = errors.New("invalid session id")
	// ErrTooLarge indicates the encoded record exceeds the size limit
	ErrTooLarge = errors.New("session record too large")
)

// Store persists sessions as one JSON document per session. File names are
// the uppercase session UUID, which keeps them interchangeable with records
// written by the desktop apps.
type Store struct {
	dir     string
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewStore creates a store rooted at dir, creating it if needed
func NewStore(dir string, log *logging.Logger, metrics *monitoring.Metrics) (*Store, error) {
	if log == nil {
		log = logging.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir %s: %w", dir, err)
	}
	return &Store{
		dir:     dir,
		log:     log.Named("store"),
		metrics: metrics,
	}, nil
}

// Dir returns the directory holding session records
func (st *Store) Dir() string {
	return st.dir
}

func (st *Store) path(sid id.SessionID) string {
	return filepath.Join(st.dir, string(sid)+".json")
}

// Save writes the session record atomically
func (st *Store) Save(s *Session) (err error) {
	timer := monitoring.NewStoreTimer(st.metrics, "save")
	defer func() { timer.Stop(err) }()

	sid, perr := id.ParseSessionID(s.ID)
	if perr != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, s.ID)
	}

	data, merr := sonic.MarshalIndent(s, "", "  ")
	if merr != nil {
		return fmt.Errorf("encode session %s: %w", sid, merr)
	}
	if len(data) > validate.MaxSessionRecord {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return fmt.Errorf("create sessions dir %s: %w", st.dir, err)
	}

	// Write-then-rename so readers never observe a partial record
	final := st.path(sid)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", sid, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session %s: %w", sid, err)
	}

	st.log.Debug("session saved",
		zap.String("session_id", string(sid)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Load reads one full session record
func (st *Store) Load(sessionID string) (s *Session, err error) {
	timer := monitoring.NewStoreTimer(st.metrics, "load")
	defer func() { timer.Stop(err) }()

	sid, perr := id.ParseSessionID(sessionID)
	if perr != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, sessionID)
	}

	data, rerr := os.ReadFile(st.path(sid))
	if rerr != nil {
		if errors.Is(rerr, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sid)
		}
		return nil, fmt.Errorf("read session %s: %w", sid, rerr)
	}

	var sess Session
	if err := sonic.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sid, err)
	}
	return &sess, nil
}

// LoadSummary reads one record without retaining messages or output
func (st *Store) LoadSummary(sessionID string) (sum *Summary, err error) {
	timer := monitoring.NewStoreTimer(st.metrics, "load_summary")
	defer func() { timer.Stop(err) }()

	sid, perr := id.ParseSessionID(sessionID)
	if perr != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, sessionID)
	}

	data, rerr := os.ReadFile(st.path(sid))
	if rerr != nil {
		if errors.Is(rerr, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sid)
		}
		return nil, fmt.Errorf("read session %s: %w", sid, rerr)
	}

	var summary Summary
	if err := sonic.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sid, err)
	}
	return &summary, nil
}

// LoadAll reads every session record, newest first. Unreadable or corrupt
// records are logged and skipped so one bad file never hides the rest.
func (st *Store) LoadAll() (sessions []*Session, err error) {
	timer := monitoring.NewStoreTimer(st.metrics, "load_all")
	defer func() { timer.Stop(err) }()

	var mu sync.Mutex
	werr := st.walkRecords(func(path string, data []byte) {
		var sess Session
		if err := sonic.Unmarshal(data, &sess); err != nil {
			st.log.Warn("skipping corrupt session record",
				zap.String("path", path),
				zap.Error(err),
			)
			return
		}
		mu.Lock()
		sessions = append(sessions, &sess)
		mu.Unlock()
	})
	if werr != nil {
		return nil, werr
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

// LoadAllSummaries reads every record as a summary, newest first
func (st *Store) LoadAllSummaries() (summaries []Summary, err error) {
	timer := monitoring.NewStoreTimer(st.metrics, "load_summaries")
	defer func() { timer.Stop(err) }()

	var mu sync.Mutex
	werr := st.walkRecords(func(path string, data []byte) {
		var summary Summary
		if err := sonic.Unmarshal(data, &summary); err != nil {
			st.log.Warn("skipping corrupt session record",
				zap.String("path", path),
				zap.Error(err),
			)
			return
		}
		mu.Lock()
		summaries = append(summaries, summary)
		mu.Unlock()
	})
	if werr != nil {
		return nil, werr
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartedAt.Equal(summaries[j].StartedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

// walkRecords reads each .json record in the store directory and hands the
// raw bytes to fn. fn may be called from multiple goroutines.
func (st *Store) walkRecords(fn func(path string, data []byte)) error {
	if _, err := os.Stat(st.dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, st.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if d.IsDir() {
			if path != st.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		data, rerr := os.ReadFile(path)
		if rerr != nil {
			st.log.Warn("skipping unreadable session record",
				zap.String("path", path),
				zap.Error(rerr),
			)
			return nil
		}
		fn(path, data)
		return nil
	})
}

// Delete removes a session record. Deleting a missing record is not an error.
func (st *Store) Delete(sessionID string) (err error) {
	timer := monitoring.NewStoreTimer(st.metrics, "delete")
	defer func() { timer.Stop(err) }()

	sid, perr := id.ParseSessionID(sessionID)
	if perr != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, sessionID)
	}

	if rerr := os.Remove(st.path(sid)); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", sid, rerr)
	}
	return nil
}

// Exists reports whether a record is on disk for the session
func (st *Store) Exists(sessionID string) bool {
	sid, err := id.ParseSessionID(sessionID)
	if err != nil {
		return false
	}
	_, serr := os.Stat(st.path(sid))
	return serr == nil
}
