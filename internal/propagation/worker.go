package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/satview/satview/internal/tle"
	"github.com/satview/satview/internal/transform"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	entry      tle.TLEEntry
	prop       *SGP4Propagator
	targetTime time.Time
	gmst       float64 // precomputed GMST for targetTime
}

// propagateResult is the output of a single satellite propagation.
type propagateResult struct {
	subPoint SubPoint
	err      error
	noradID  int
}

// WorkerPool manages a fixed number of goroutines for parallel SGP4
// propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateBatch computes sub-points for all satellites at the target time.
// props maps NORAD ID to a preinitialized propagator; entries without one are
// counted as errors. Failed satellites are logged and skipped.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, entries []tle.TLEEntry, targetTime time.Time, props map[int]*SGP4Propagator) ([]SubPoint, int, int) {
	if len(entries) == 0 {
		return nil, 0, 0
	}

	// GMST is the same for every satellite at this instant.
	gmst := transform.GMST(targetTime)

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			job := propagateJob{
				entry:      entry,
				prop:       props[entry.NORADID],
				targetTime: targetTime,
				gmst:       gmst,
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	subPoints := make([]SubPoint, 0, len(entries))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"norad_id", result.noradID,
				"error", result.err,
			)
			continue
		}
		successCount++
		subPoints = append(subPoints, result.subPoint)
	}

	return subPoints, successCount, errorCount
}

// propagateSingle runs SGP4 and the TEME→ECEF→geodetic chain for one
// satellite.
func propagateSingle(job propagateJob) propagateResult {
	prop := job.prop
	if prop == nil {
		var err error
		prop, err = NewSGP4Propagator(job.entry.Line1, job.entry.Line2, job.entry.NORADID)
		if err != nil {
			return propagateResult{noradID: job.entry.NORADID, err: err}
		}
	}

	sv, err := prop.PropagateAt(job.targetTime)
	if err != nil {
		return propagateResult{noradID: job.entry.NORADID, err: err}
	}

	ecef := transform.TEMEToECEFWithGMST(sv, job.gmst)
	geo := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)

	return propagateResult{
		noradID: job.entry.NORADID,
		subPoint: SubPoint{
			NORADID:  job.entry.NORADID,
			Name:     job.entry.Name,
			LatDeg:   geo.LatDeg,
			LonDeg:   geo.LonDeg,
			AltKm:    geo.AltKm,
			SpeedKmS: sv.Speed(),
		},
	}
}
