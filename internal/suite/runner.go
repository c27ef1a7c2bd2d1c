package suite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/attest/internal/block"
	"github.com/roach88/attest/internal/compare"
	"github.com/roach88/attest/internal/groundtruth"
	"github.com/roach88/attest/internal/motif"
	"github.com/roach88/attest/internal/notion"
	"github.com/roach88/attest/internal/relational"
	"github.com/roach88/attest/internal/snapshot"
	"github.com/roach88/attest/internal/verdict"
)

// Runner executes suites. All collaborators are wired by the caller; any a
// suite does not need may be nil.
type Runner struct {
	Resolver  *notion.Resolver
	Snapshots *snapshot.Reader
	Matcher   *motif.Matcher
	DB        *relational.Reader
	Log       *slog.Logger
}

// Run evaluates every check of the suite into a Report.
//
// Expectation failures (wrong structure, wrong values) do not stop the run:
// later checks still execute so the report carries full diagnostics.
// Infrastructure failures do stop it - once a fetch or query path is broken
// the remaining verdicts would be noise, and the report is already marked
// Broken.
func (r *Runner) Run(ctx context.Context, s *Suite) *verdict.Report {
	report := verdict.NewReport()
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("suite", s.Name, "run", report.RunID)

	var snap []block.Block
	snapLoaded := false

	for _, check := range s.Checks {
		switch {
		case check.Motif != nil:
			if r.Matcher == nil {
				err := fmt.Errorf("motif check given but no matcher configured")
				log.Error("motif check failed to run", "check", check.Name, "err", err)
				report.RecordError(check.Name, err)
				return report
			}
			if !snapLoaded {
				var err error
				snap, err = r.loadSnapshot(ctx, s.Notion)
				if err != nil {
					log.Error("snapshot failed", "check", check.Name, "err", err)
					report.RecordError(check.Name, err)
					return report
				}
				snapLoaded = true
				log.Debug("snapshot loaded", "blocks", len(snap))
			}
			v := r.Matcher.Evaluate(ctx, snap, *check.Motif)
			log.Debug("motif evaluated", "check", check.Name, "passed", v.Passed)
			report.Record(check.Name, v)

		case check.Rows != nil:
			v, err := r.runRowCheck(ctx, *check.Rows, s.Database)
			if err != nil {
				log.Error("row check failed to run", "check", check.Name, "err", err)
				report.RecordError(check.Name, err)
				if verdict.IsInfrastructure(err) {
					return report
				}
				continue
			}
			log.Debug("rows compared", "check", check.Name, "passed", v.Passed)
			report.Record(check.Name, v)
		}
	}

	return report
}

// loadSnapshot resolves the notion target and flattens its subtree.
func (r *Runner) loadSnapshot(ctx context.Context, target *NotionTarget) ([]block.Block, error) {
	if target == nil {
		return nil, fmt.Errorf("motif checks given but no notion target configured")
	}
	if r.Snapshots == nil {
		return nil, fmt.Errorf("no hierarchical store configured")
	}

	id := target.PageID
	if id == "" {
		if r.Resolver == nil {
			return nil, fmt.Errorf("page title %q given but no resolver configured", target.PageTitle)
		}
		var err error
		id, err = r.Resolver.FindPage(ctx, target.PageTitle)
		if err != nil {
			return nil, err
		}
	}
	return r.Snapshots.Snapshot(ctx, id)
}

// runRowCheck reads the actual row-set, recomputes the expected one, and
// compares them. The database target decides the placeholder style of
// generated queries.
func (r *Runner) runRowCheck(ctx context.Context, rc RowCheck, target *DatabaseTarget) (verdict.Verdict, error) {
	if r.DB == nil {
		return verdict.Verdict{}, fmt.Errorf("row check given but no database configured")
	}
	ph := groundtruth.PlaceholderQuestion
	if target != nil {
		ph = groundtruth.PlaceholderFor(target.Driver)
	}

	actual, err := r.querySpec(ctx, rc.Actual, rc.Key, ph)
	if err != nil {
		return verdict.Verdict{}, err
	}
	var expected relational.RowSet
	if rc.Expected.SQL != "" {
		expected, err = groundtruth.Recompute(ctx, r.DB, groundtruth.Derivation{
			Name: "expected",
			SQL:  rc.Expected.SQL,
			Args: rc.Expected.Args,
			Key:  rc.Key,
		})
	} else {
		// The expected side may also be declarative, though recomputing
		// from the fact tables via sql is the intended use.
		expected, err = r.querySpec(ctx, rc.Expected, rc.Key, ph)
	}
	if err != nil {
		return verdict.Verdict{}, err
	}

	return compare.Rows(actual, expected, compare.Options{
		Mode:          compare.Mode(rc.Mode),
		Tolerance:     rc.Tolerance,
		SortedBy:      rc.SortedBy,
		MaxMismatches: rc.MaxMismatches,
	}), nil
}

// querySpec resolves a QuerySpec into a row-set: raw SQL as-is, or a
// validated SELECT built from table/where/order_by.
func (r *Runner) querySpec(ctx context.Context, q QuerySpec, key []string, ph groundtruth.Placeholder) (relational.RowSet, error) {
	sqlText, args := q.SQL, q.Args
	if sqlText == "" {
		var err error
		sqlText, args, err = groundtruth.SelectAll(q.Table, q.Where, q.OrderBy, ph)
		if err != nil {
			return relational.RowSet{}, verdict.NewQueryFailed(q.Table, err)
		}
	}
	rs, err := r.DB.Query(ctx, sqlText, args...)
	if err != nil {
		return relational.RowSet{}, err
	}
	rs.Key = key
	return rs, nil
}
