package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zaidkom/net-zero/internal/table"
)

// defaultAckWindow is how long the "just saved" acknowledgement holds after
// a successful save.
const defaultAckWindow = 2 * time.Second

// LocalCache is the device-local persistence tier for sources and the table
// counter. It seeds the workspace when the store has no snapshot yet.
type LocalCache interface {
	SaveSources(sources []*table.Source, counter int) error
	LoadSources() ([]*table.Source, int, error)
}

// Synchronizer moves workspace state to and from the workflow store. Each
// stage is saved and loaded independently; the other record fields are
// never touched.
type Synchronizer struct {
	ws     *Workspace
	client *Client
	id     int
	cache  LocalCache
	logger *slog.Logger

	ackWindow time.Duration
	now       func() time.Time
	savedAt   time.Time
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithLocalCache attaches the device-local cache tier.
func WithLocalCache(cache LocalCache) SyncOption {
	return func(s *Synchronizer) { s.cache = cache }
}

// WithAckWindow overrides the "just saved" acknowledgement duration.
func WithAckWindow(d time.Duration) SyncOption {
	return func(s *Synchronizer) { s.ackWindow = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SyncOption {
	return func(s *Synchronizer) { s.now = now }
}

// WithSyncLogger sets the synchronizer logger.
func WithSyncLogger(logger *slog.Logger) SyncOption {
	return func(s *Synchronizer) { s.logger = logger }
}

// NewSynchronizer creates a synchronizer for one workflow record.
func NewSynchronizer(ws *Workspace, client *Client, workflowID int, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		ws:        ws,
		client:    client,
		id:        workflowID,
		logger:    slog.New(slog.DiscardHandler),
		ackWindow: defaultAckWindow,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save serializes the stage snapshot and PUTs it into the record field.
// On success the stage's dirty flag clears and the acknowledgement window
// opens. On failure the dirty flag stays set.
func (s *Synchronizer) Save(ctx context.Context, stage Stage) error {
	var payload string
	var err error

	switch stage {
	case StagePrep:
		payload, err = EncodePrep(s.ws.Snapshot())
	case StageAnalysis:
		payload, err = EncodeScripts(s.ws.Scripts.All())
	default:
		return fmt.Errorf("unknown workflow stage: %s", stage)
	}
	if err != nil {
		return err
	}

	if err := s.client.Update(ctx, s.id, map[string]string{string(stage): payload}); err != nil {
		return fmt.Errorf("saving %s: %w", stage, err)
	}

	if stage == StagePrep && s.cache != nil {
		if err := s.cache.SaveSources(s.ws.Sources.All(), s.ws.Sources.Counter()); err != nil {
			s.logger.Warn("local cache write failed", "error", err)
		}
	}

	s.ws.clearDirty(stage)
	s.savedAt = s.now()
	s.logger.Info("workflow saved", "workflow", s.id, "stage", stage)
	return nil
}

// Load fetches the record and repopulates the stage. An empty data_prep
// field falls back to the local cache when one is attached.
func (s *Synchronizer) Load(ctx context.Context, stage Stage) error {
	rec, err := s.client.Get(ctx, s.id)
	if err != nil {
		return fmt.Errorf("loading workflow %d: %w", s.id, err)
	}

	switch stage {
	case StagePrep:
		if rec.DataPrep != "" {
			s.ws.RestorePrep(DecodePrep(rec.DataPrep))
			return nil
		}
		if s.cache != nil {
			sources, counter, err := s.cache.LoadSources()
			if err != nil {
				s.logger.Warn("local cache read failed", "error", err)
				return nil
			}
			s.ws.Sources.Restore(sources, counter)
			s.ws.clearDirty(StagePrep)
		}
	case StageAnalysis:
		s.ws.RestoreScripts(DecodeScripts(rec.Analysis))
	default:
		return fmt.Errorf("unknown workflow stage: %s", stage)
	}
	return nil
}

// JustSaved reports whether a save completed within the acknowledgement
// window.
func (s *Synchronizer) JustSaved() bool {
	if s.savedAt.IsZero() {
		return false
	}
	return s.now().Sub(s.savedAt) < s.ackWindow
}
