package booking

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taxisync/internal/types"
)

// SubmitMany creates each request independently. One failing request does not
// stop or undo the others; the error is a *BatchError when any item failed.
func (s *Service) SubmitMany(ctx context.Context, reqs []CreateRequest) (*BulkResult, error) {
	items := make([]ItemOutcome, len(reqs))
	var g errgroup.Group
	g.SetLimit(s.opts.BulkConcurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			out := ItemOutcome{Index: i}
			res, err := s.Create(ctx, req)
			if res != nil {
				out.IDs = res.IDs()
			}
			if err != nil {
				out.Err, out.Error = err, err.Error()
			}
			items[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return s.collect("submit", items)
}

// CancelMany cancels every id independently. Bookings already gone count as
// cancelled. Successful cancellations are never reverted.
func (s *Service) CancelMany(ctx context.Context, ids []types.ID) (*BulkResult, error) {
	items := make([]ItemOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(s.opts.BulkConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			out := ItemOutcome{Index: i, IDs: []types.ID{id}}
			if _, err := s.Cancel(ctx, id); err != nil {
				out.Err, out.Error = err, err.Error()
			}
			items[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return s.collect("cancel", items)
}

func (s *Service) collect(op string, items []ItemOutcome) (*BulkResult, error) {
	res := &BulkResult{Items: items}
	var errs []error
	for _, it := range items {
		if it.Err != nil {
			res.Failed++
			errs = append(errs, it.Err)
			continue
		}
		res.Successful++
	}
	s.logger.Info("bulk "+op+" finished", zap.Int("successful", res.Successful), zap.Int("failed", res.Failed))
	if len(errs) == 0 {
		return res, nil
	}
	return res, &BatchError{Succeeded: res.Successful, Failed: res.Failed, Errs: errs}
}
