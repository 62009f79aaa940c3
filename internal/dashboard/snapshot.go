package dashboard

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

// Snapshot is the landing view: the overview and every dimension summary.
type Snapshot struct {
	Overview    *model.Overview          `json:"overview"`
	Providers   []model.ProviderSummary  `json:"providers"`
	States      []model.StateSummary     `json:"states"`
	Specialties []model.SpecialtySummary `json:"specialties"`
	Payers      []model.PayerSummary     `json:"payers"`
	Quarterly   []model.QuarterSummary   `json:"quarterly"`
}

// snapshotParallelism bounds concurrent backend reads of one snapshot.
const snapshotParallelism = 3

// Snapshot loads the overview and the five dimension summaries
// concurrently. The first failure cancels the rest and the whole snapshot
// comes back empty with a message.
func (s *Service) Snapshot(ctx context.Context) Result[Snapshot] {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotParallelism)

	g.Go(func() error {
		rows, err := load[model.Overview](gctx, s, model.TableOverview, table.Query{})
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			snap.Overview = &rows[0]
		}
		return nil
	})
	g.Go(func() (err error) {
		snap.Providers, err = load[model.ProviderSummary](gctx, s, model.TableProviders, byTotal("provider_name"))
		return err
	})
	g.Go(func() (err error) {
		snap.States, err = load[model.StateSummary](gctx, s, model.TableStates, byTotal("state"))
		return err
	})
	g.Go(func() (err error) {
		snap.Specialties, err = load[model.SpecialtySummary](gctx, s, model.TableSpecialties, byTotal("specialty"))
		return err
	})
	g.Go(func() (err error) {
		snap.Payers, err = load[model.PayerSummary](gctx, s, model.TablePayers, byTotal("payer_name"))
		return err
	})
	g.Go(func() (err error) {
		snap.Quarterly, err = load[model.QuarterSummary](gctx, s, model.TableQuarterly, byQuarter())
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return failed[Snapshot]("Request cancelled.")
		}
		return failedRead[Snapshot](s, "dashboard", err)
	}
	return ok([]Snapshot{snap})
}
