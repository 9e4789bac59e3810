package services

import (
	"context"
	"time"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/storage"
)

type urlLister interface {
	ListURLs(ctx context.Context) (map[string]struct{}, error)
}

// ReconcileScheduler periodically deletes gallery blobs that no metadata row
// points to. Blobs younger than grace are skipped so in-flight uploads are
// never touched.
type ReconcileScheduler struct {
	store    storage.Store
	repo     urlLister
	interval time.Duration
	grace    time.Duration
	log      *logger.Logger
	now      func() time.Time
	stopChan chan struct{}
}

func NewReconcileScheduler(store storage.Store, repo urlLister, interval, grace time.Duration, log *logger.Logger) *ReconcileScheduler {
	return &ReconcileScheduler{
		store:    store,
		repo:     repo,
		interval: interval,
		grace:    grace,
		log:      log.With("component", "reconcile"),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

func (s *ReconcileScheduler) Start() {
	if s.store == nil || s.repo == nil || s.interval <= 0 {
		return
	}
	go s.loop()
	s.log.Info("orphan reconciliation started", "interval", s.interval.String(), "grace", s.grace.String())
}

func (s *ReconcileScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *ReconcileScheduler) loop() {
	// Run on startup as well as by interval.
	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *ReconcileScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("orphan sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("orphan sweep removed blobs", "count", removed)
	}
}

// Sweep removes orphaned gallery blobs and reports how many it removed.
func (s *ReconcileScheduler) Sweep(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx, GalleryPrefix)
	if err != nil {
		return 0, err
	}
	urls, err := s.repo.ListURLs(ctx)
	if err != nil {
		return 0, err
	}
	// Rows keep absolute URLs, so match on object path. A changed public base
	// URL or CDN domain must not make live images look orphaned.
	known := make(map[string]struct{}, len(urls))
	for u := range urls {
		known[storage.PathFromURL(u, GalleryPrefix)] = struct{}{}
	}

	cutoff := s.now().Add(-s.grace)
	var orphans []string
	for _, obj := range objects {
		if obj.Created.After(cutoff) {
			continue
		}
		if _, ok := known[storage.PathFromURL(obj.Path, GalleryPrefix)]; ok {
			continue
		}
		orphans = append(orphans, obj.Path)
	}

	if len(orphans) == 0 {
		return 0, nil
	}
	if err := s.store.Remove(ctx, orphans); err != nil {
		return 0, err
	}
	return len(orphans), nil
}
