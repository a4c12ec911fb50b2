package localsession

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/executor"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/session"
	"golang.org/x/sync/errgroup"
)

// Job is the outcome of running one graph.
type Job struct {
	Graph  string
	Report *executor.Report
	Err    error
}

// RunAll runs every graph of the model in its own session, at most limit at
// a time (0 means no limit). A failing graph does not stop the others. The
// jobs come back in model order along with every job error joined.
func RunAll(ctx context.Context, factory session.SessionFactory, model *config.Model, reg *registry.Registry, limit int) ([]Job, error) {
	logger := ctxlog.FromContext(ctx)
	jobs := make([]Job, len(model.Graphs))

	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, def := range model.Graphs {
		jobs[i].Graph = def.Name
		eg.Go(func() error {
			jobCtx := ctxlog.With(ctx, "graph", def.Name)
			report, err := runOne(jobCtx, factory, def, reg)
			jobs[i].Report = report
			jobs[i].Err = err
			return nil
		})
	}
	_ = eg.Wait()

	var errs []error
	for _, j := range jobs {
		if j.Err != nil {
			errs = append(errs, fmt.Errorf("graph %q: %w", j.Graph, j.Err))
		}
	}
	logger.Debug("All graphs finished.", "graphs", len(jobs), "failed", len(errs))
	return jobs, errors.Join(errs...)
}

func runOne(ctx context.Context, factory session.SessionFactory, def *config.Graph, reg *registry.Registry) (report *executor.Report, err error) {
	sess, err := factory.NewSession(ctx, def, reg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	exec, err := sess.GetExecutor()
	if err != nil {
		return nil, err
	}
	return exec.Execute(ctx)
}
