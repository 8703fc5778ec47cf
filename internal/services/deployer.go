package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vvka-141/sfdeploy/internal/files/scanner"
	"github.com/vvka-141/sfdeploy/internal/logging"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// resumeTimeout bounds the resume of a chain after the run context ended.
const resumeTimeout = time.Minute

// DeploymentService implements the Deployer interface.
// Thread-Safety: NOT safe for concurrent Deploy() calls on the same instance.
// Concurrent runs against one project are serialized with fingerprint.Acquire.
type DeploymentService struct {
	planner   *Planner
	connector sfdeploy.Connector
	store     sfdeploy.FingerprintStore
	archiver  sfdeploy.Archiver
	approver  sfdeploy.Approver
	logger    sfdeploy.Logger
	runID     string
	now       func() time.Time
}

// Option configures a DeploymentService.
type Option func(*DeploymentService)

// WithRunID sets the run identifier reported in the summary.
func WithRunID(id string) Option {
	return func(s *DeploymentService) { s.runID = id }
}

// WithClock replaces time.Now for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *DeploymentService) { s.now = now }
}

// NewDeploymentService creates a new DeploymentService with all dependencies injected.
//
// Panics on nil dependencies: these are programmer errors that should fail
// loudly at startup. Runtime conditions (discovery, connection, execution)
// are returned as errors.
func NewDeploymentService(
	connector sfdeploy.Connector,
	resolver sfdeploy.ChangeResolver,
	store sfdeploy.FingerprintStore,
	archiver sfdeploy.Archiver,
	approver sfdeploy.Approver,
	logger sfdeploy.Logger,
	fileScanner *scanner.Scanner,
	opts ...Option,
) *DeploymentService {
	if connector == nil {
		panic("connector cannot be nil")
	}
	if archiver == nil {
		panic("archiver cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}

	svc := &DeploymentService{
		planner:   NewPlanner(resolver, store, fileScanner, logger),
		connector: connector,
		store:     store,
		archiver:  archiver,
		approver:  approver,
		logger:    logger,
		runID:     uuid.NewString(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Deploy plans the run, applies every changed artifact and returns the
// summary. The summary is nil only when the run failed during setup.
func (s *DeploymentService) Deploy(ctx context.Context, config sfdeploy.DeploymentConfig) (*sfdeploy.Summary, error) {
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	summary := &sfdeploy.Summary{RunID: s.runID, StartedAt: s.now()}
	s.logger.Verbose("Run %s started", s.runID)

	plan, err := s.planner.Plan(ctx, config)
	if err != nil {
		return nil, err
	}

	if plan.Empty() {
		s.logger.Info("Nothing to deploy (%d unchanged)", len(plan.Skipped))
		summary.NothingChanged = true
		summary.Results = skippedResults(plan)
		return summary, s.finish(summary, config, nil)
	}

	if config.DryRun {
		for _, st := range plan.Steps {
			summary.Results = append(summary.Results, sfdeploy.ArtifactResult{
				Artifact: st.Artifact,
				Outcome:  sfdeploy.OutcomeWouldDeploy,
				Root:     st.Root,
			})
		}
		summary.Results = append(summary.Results, skippedResults(plan)...)
		summary.FinishedAt = s.now()
		s.report(summary)
		return summary, nil
	}

	approved, err := s.approver.RequestApproval(ctx, config.Target, len(plan.Steps))
	if err != nil {
		return nil, fmt.Errorf("approval failed: %w", err)
	}
	if !approved {
		return nil, sfdeploy.ErrApprovalDenied
	}

	session, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.logger.Warn("Failed to close session: %v", cerr)
		}
	}()

	results, runErr := s.execute(ctx, session, config, plan)
	summary.Results = append(results, skippedResults(plan)...)
	return summary, s.finish(summary, config, runErr)
}

// execute applies the plan group by group. Task chains are suspended before
// their first step and resumed after their last, whatever the outcome.
func (s *DeploymentService) execute(ctx context.Context, session sfdeploy.Session, config sfdeploy.DeploymentConfig, plan *Plan) ([]sfdeploy.ArtifactResult, error) {
	results := make([]sfdeploy.ArtifactResult, len(plan.Steps))
	for i, st := range plan.Steps {
		results[i] = sfdeploy.ArtifactResult{Artifact: st.Artifact, Outcome: sfdeploy.OutcomePending, Root: st.Root}
	}

	var errs []error
	stop := false
	pos := 0
	for _, g := range plan.Groups() {
		start := pos
		pos += len(g.Steps)
		if stop {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Stopping before %s: %v", g.Steps[0].Artifact.Path, err)
			errs = append(errs, fmt.Errorf("deployment interrupted: %w", err))
			stop = true
			continue
		}

		var chain *chainState
		if g.Root != "" {
			var err error
			chain, err = s.suspendChain(ctx, session, g)
			if err != nil {
				for j, st := range g.Steps {
					results[start+j].Outcome = sfdeploy.OutcomeFailed
					results[start+j].Err = &sfdeploy.ExecutionError{Artifact: st.Artifact.Path, Schema: st.Artifact.Schema, Err: err}
				}
				s.logger.Error("Task chain %s.%s: %v", g.Schema, g.Root, err)
				stop = config.ErrorPolicy == sfdeploy.PolicyFailFast
				continue
			}
		}

		for j, st := range g.Steps {
			if err := ctx.Err(); err != nil {
				s.logger.Warn("Stopping before %s: %v", st.Artifact.Path, err)
				errs = append(errs, fmt.Errorf("deployment interrupted: %w", err))
				stop = true
				break
			}
			if chain != nil {
				chain.remember(ctx, session, st, s.logger)
			}
			results[start+j] = s.apply(ctx, session, st)
			if results[start+j].Outcome == sfdeploy.OutcomeFailed && config.ErrorPolicy == sfdeploy.PolicyFailFast {
				stop = true
				break
			}
		}

		if chain != nil {
			if err := s.resumeChain(ctx, session, chain); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return results, errors.Join(errs...)
}

// apply archives the previous version, executes the artifact and commits
// its fingerprint on success.
func (s *DeploymentService) apply(ctx context.Context, session sfdeploy.Session, st Step) sfdeploy.ArtifactResult {
	a := st.Artifact
	res := sfdeploy.ArtifactResult{Artifact: a, Root: st.Root}

	if prev, ok := s.store.Lookup(a.Path); ok && prev.Content != "" {
		entry, err := s.archiver.Archive(a.Path, prev.Content)
		if err != nil {
			s.logger.Warn("Could not archive previous version of %s: %v", a.Path, err)
		} else {
			res.Archive = entry.Path
			s.logger.Verbose("Archived previous version of %s to %s", a.Path, entry.Path)
		}
	}

	s.logger.Verbose("Applying %s in schema %s", a.Path, a.Schema)
	if err := session.Execute(ctx, a.Schema, a.Content); err != nil {
		res.Outcome = sfdeploy.OutcomeFailed
		res.Err = &sfdeploy.ExecutionError{Artifact: a.Path, Schema: a.Schema, Err: err}
		s.logger.Error("%v", res.Err)
		return res
	}

	s.store.Commit(a.Path, a.Content)
	if err := s.store.Save(); err != nil {
		s.logger.Warn("Failed to save fingerprints after %s: %v", a.Path, err)
	}
	res.Outcome = sfdeploy.OutcomeDeployed
	return res
}

// finish saves the store, sweeps the archive and logs the summary.
func (s *DeploymentService) finish(summary *sfdeploy.Summary, config sfdeploy.DeploymentConfig, runErr error) error {
	errs := []error{runErr}

	if err := s.store.Save(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save fingerprints: %w", err))
	}

	swept, err := s.archiver.Sweep(config.RetentionDays)
	if err != nil {
		s.logger.Warn("Archive sweep incomplete: %v", err)
	}
	summary.ArchivesSwept = swept
	if swept > 0 {
		s.logger.Verbose("Removed %d archive entr(ies) older than %d days", swept, config.RetentionDays)
	}

	summary.FinishedAt = s.now()
	s.report(summary)

	for _, r := range summary.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

type markerLogger interface {
	Marker(o sfdeploy.Outcome) string
}

func (s *DeploymentService) marker(o sfdeploy.Outcome) string {
	if m, ok := s.logger.(markerLogger); ok {
		return m.Marker(o)
	}
	return logging.Marker(o)
}

func (s *DeploymentService) report(summary *sfdeploy.Summary) {
	for _, r := range summary.Results {
		line := fmt.Sprintf("  %s %s (%s)", s.marker(r.Outcome), r.Artifact.Path, r.Outcome)
		if r.Root != "" {
			line += " [chain " + r.Root + "]"
		}
		s.logger.Info("%s", line)
	}

	elapsed := summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)
	status := fmt.Sprintf("deployed %d, skipped %d, failed %d, pending %d in %s",
		summary.Count(sfdeploy.OutcomeDeployed),
		summary.Count(sfdeploy.OutcomeSkipped),
		summary.Count(sfdeploy.OutcomeFailed),
		summary.Count(sfdeploy.OutcomePending),
		elapsed)

	switch {
	case summary.Failed():
		s.logger.Error("Deployment failed: %s", status)
	case summary.Count(sfdeploy.OutcomeWouldDeploy) > 0:
		s.logger.Info("Dry run: %d artifact(s) would be deployed", summary.Count(sfdeploy.OutcomeWouldDeploy))
	case summary.Count(sfdeploy.OutcomePending) > 0:
		s.logger.Warn("Deployment incomplete: %s", status)
	default:
		s.logger.Info("✓ Deployment completed: %s", status)
	}
}

func skippedResults(plan *Plan) []sfdeploy.ArtifactResult {
	out := make([]sfdeploy.ArtifactResult, 0, len(plan.Skipped))
	for _, a := range plan.Skipped {
		out = append(out, sfdeploy.ArtifactResult{Artifact: a, Outcome: sfdeploy.OutcomeSkipped})
	}
	return out
}

// Verify DeploymentService implements the Deployer interface at compile time
var _ sfdeploy.Deployer = (*DeploymentService)(nil)
