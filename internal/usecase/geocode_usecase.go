package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/internal/domain/service"
	"woonruil/pkg/logger"
)

const (
	defaultBackfillWorkers = 4
	backfillBatchSize      = 50
	backfillTimeout        = 2 * time.Minute
)

type GeocodeUseCase struct {
	listingRepo repository.ListingRepository
	geocoder    service.Geocoder
	workers     int
	running     atomic.Bool
}

func NewGeocodeUseCase(listingRepo repository.ListingRepository, geocoder service.Geocoder) *GeocodeUseCase {
	return &GeocodeUseCase{
		listingRepo: listingRepo,
		geocoder:    geocoder,
		workers:     defaultBackfillWorkers,
	}
}

type BackfillReport struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
}

// Backfill geocodes every listing without coordinates and writes the result
// back. A failing listing is logged and skipped; it never aborts the batch.
func (uc *GeocodeUseCase) Backfill(ctx context.Context, listings []*entity.Listing) BackfillReport {
	var attempted, resolved, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)

	for _, l := range listings {
		if l.HasCoordinates() {
			continue
		}
		g.Go(func() error {
			attempted.Add(1)
			if err := uc.resolve(gctx, l); err != nil {
				failed.Add(1)
				if errors.Is(err, service.ErrAddressNotFound) {
					logger.Debug("No coordinates for listing %s (%q)", l.ID, l.PostalAddress())
				} else {
					logger.Warn("Geocoding listing %s failed: %v", l.ID, err)
				}
				return nil
			}
			resolved.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return BackfillReport{
		Attempted: int(attempted.Load()),
		Resolved:  int(resolved.Load()),
		Failed:    int(failed.Load()),
	}
}

func (uc *GeocodeUseCase) resolve(ctx context.Context, l *entity.Listing) error {
	coords, err := uc.geocoder.Geocode(ctx, l.PostalAddress())
	if err != nil {
		return err
	}
	if err := uc.listingRepo.UpdateCoordinates(ctx, l.ID, coords.Latitude, coords.Longitude); err != nil {
		return err
	}
	l.SetCoordinates(coords.Latitude, coords.Longitude)
	return nil
}

// BackfillMissing loads up to limit listings lacking coordinates and backfills them.
func (uc *GeocodeUseCase) BackfillMissing(ctx context.Context, limit int) (BackfillReport, error) {
	listings, err := uc.listingRepo.ListMissingCoordinates(ctx, limit)
	if err != nil {
		return BackfillReport{}, err
	}
	return uc.Backfill(ctx, listings), nil
}

// TriggerBackfill starts a background backfill of listings unless one is
// already running. It returns immediately.
func (uc *GeocodeUseCase) TriggerBackfill(listings []*entity.Listing) {
	if len(listings) == 0 || !uc.running.CompareAndSwap(false, true) {
		return
	}

	// the caller's request may end before the lookups do
	batch := make([]*entity.Listing, len(listings))
	for i, l := range listings {
		cp := *l
		batch[i] = &cp
	}

	go func() {
		defer uc.running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
		defer cancel()

		report := uc.Backfill(ctx, batch)
		if report.Attempted > 0 {
			logger.Info("Geocode backfill: %d attempted, %d resolved, %d failed", report.Attempted, report.Resolved, report.Failed)
		}
	}()
}

// StartBackfillJob periodically backfills listings until ctx is cancelled.
func (uc *GeocodeUseCase) StartBackfillJob(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !uc.running.CompareAndSwap(false, true) {
					continue
				}
				report, err := uc.BackfillMissing(ctx, backfillBatchSize)
				uc.running.Store(false)
				if err != nil {
					logger.Error("Scheduled geocode backfill failed: %v", err)
					continue
				}
				if report.Attempted > 0 {
					logger.Info("Scheduled geocode backfill: %d attempted, %d resolved, %d failed", report.Attempted, report.Resolved, report.Failed)
				}
			}
		}
	}()
}
