package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

type taskRef struct {
	schema, name string
}

// chainState remembers which tasks of one chain were running before the
// run touched them. Only those are resumed.
type chainState struct {
	root        taskRef
	rootStarted bool
	started     []taskRef // non-root tasks, parents first
}

func (s *DeploymentService) suspendChain(ctx context.Context, session sfdeploy.Session, g Group) (*chainState, error) {
	chain := &chainState{root: taskRef{schema: g.Schema, name: g.Root}}

	state, err := session.TaskState(ctx, g.Schema, g.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read state of root task: %w", err)
	}
	s.logger.Verbose("Root task %s.%s is %s", g.Schema, g.Root, state)
	if state != sfdeploy.TaskStateStarted {
		return chain, nil
	}

	if err := session.SuspendTask(ctx, g.Schema, g.Root); err != nil {
		return nil, fmt.Errorf("failed to suspend root task: %w", err)
	}
	chain.rootStarted = true
	s.logger.Info("Suspended root task %s.%s", g.Schema, g.Root)
	return chain, nil
}

// remember records the state of a non-root task before its definition is
// replaced. A task whose state cannot be read is not resumed.
func (c *chainState) remember(ctx context.Context, session sfdeploy.Session, st Step, logger sfdeploy.Logger) {
	if st.Task == nil || st.Task.Name == c.root.name {
		return
	}
	ref := taskRef{schema: st.Artifact.Schema, name: st.Task.Name}
	state, err := session.TaskState(ctx, ref.schema, ref.name)
	if err != nil {
		logger.Warn("Could not read state of task %s.%s, it will stay suspended: %v", ref.schema, ref.name, err)
		return
	}
	if state == sfdeploy.TaskStateStarted {
		c.started = append(c.started, ref)
	}
}

// resumeChain resumes children first and the root last. It still runs when
// ctx is done so an interrupted run does not leave the chain suspended.
func (s *DeploymentService) resumeChain(ctx context.Context, session sfdeploy.Session, c *chainState) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resumeTimeout)
	defer cancel()

	var errs []error
	for i := len(c.started) - 1; i >= 0; i-- {
		t := c.started[i]
		if err := session.ResumeTask(ctx, t.schema, t.name); err != nil {
			s.logger.Error("Failed to resume task %s.%s: %v", t.schema, t.name, err)
			errs = append(errs, fmt.Errorf("%w: resume task %s.%s: %w", sfdeploy.ErrExecutionFailed, t.schema, t.name, err))
			continue
		}
		s.logger.Verbose("Resumed task %s.%s", t.schema, t.name)
	}

	if c.rootStarted {
		if err := session.ResumeTask(ctx, c.root.schema, c.root.name); err != nil {
			s.logger.Error("Failed to resume root task %s.%s: %v", c.root.schema, c.root.name, err)
			errs = append(errs, fmt.Errorf("%w: resume root task %s.%s: %w", sfdeploy.ErrExecutionFailed, c.root.schema, c.root.name, err))
		} else {
			s.logger.Info("Resumed root task %s.%s", c.root.schema, c.root.name)
		}
	}
	return errors.Join(errs...)
}
