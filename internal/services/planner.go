package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vvka-141/sfdeploy/internal/files/scanner"
	"github.com/vvka-141/sfdeploy/internal/taskgraph"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// Step is one changed artifact scheduled for execution.
type Step struct {
	Artifact sfdeploy.Artifact

	// Task is the parsed definition, nil for tables, procedures and task
	// folder scripts that create no task.
	Task *taskgraph.Node

	// Root names the chain root the step is applied under, empty for
	// non-task steps. RootSchema is the schema the root lives in.
	Root       string
	RootSchema string
}

// Group is a run of consecutive steps sharing a task chain root. Non-task
// steps form single-step groups with an empty Root.
type Group struct {
	Root   string
	Schema string
	Steps  []Step
}

// Plan is the side-effect free outcome of discovery and change detection.
type Plan struct {
	// Steps are the changed artifacts in execution order: non-task artifacts
	// by path, then task artifacts grouped by chain root, parents first.
	Steps []Step

	// Skipped are discovered artifacts whose fingerprint is unchanged.
	Skipped []sfdeploy.Artifact

	// Unmapped and Missing are discovered paths that were not loaded.
	Unmapped []string
	Missing  []string

	// Graph holds every task in the task folders, with changed definitions
	// replacing the on-disk ones. Order is its topological order.
	Graph *taskgraph.Graph
	Order []*taskgraph.Node
}

// Empty reports whether nothing needs to be applied.
func (p *Plan) Empty() bool { return len(p.Steps) == 0 }

// Groups splits Steps into chain groups.
func (p *Plan) Groups() []Group {
	var out []Group
	for _, st := range p.Steps {
		if st.Root != "" && len(out) > 0 && out[len(out)-1].Root == st.Root {
			last := &out[len(out)-1]
			last.Steps = append(last.Steps, st)
			continue
		}
		out = append(out, Group{Root: st.Root, Schema: st.RootSchema, Steps: []Step{st}})
	}
	return out
}

// Planner resolves the change set and orders it. It never touches the
// warehouse, the archive or the fingerprint file.
type Planner struct {
	resolver sfdeploy.ChangeResolver
	store    sfdeploy.FingerprintStore
	scanner  *scanner.Scanner
	logger   sfdeploy.Logger
}

// NewPlanner creates a Planner. Panics if any dependency is nil.
func NewPlanner(resolver sfdeploy.ChangeResolver, store sfdeploy.FingerprintStore, s *scanner.Scanner, logger sfdeploy.Logger) *Planner {
	if resolver == nil {
		panic("resolver cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if s == nil {
		panic("scanner cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Planner{resolver: resolver, store: store, scanner: s, logger: logger}
}

// Plan discovers changed artifacts and computes the execution order.
// A cycle anywhere in the task graph fails the plan.
func (p *Planner) Plan(ctx context.Context, config sfdeploy.DeploymentConfig) (*Plan, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	paths, err := p.resolver.Resolve(ctx)
	if err != nil {
		if !errors.Is(err, sfdeploy.ErrDiscoveryFailed) {
			err = fmt.Errorf("%w: %s: %w", sfdeploy.ErrDiscoveryFailed, p.resolver.Name(), err)
		}
		return nil, err
	}
	p.logger.Verbose("Discovery (%s) returned %d path(s)", p.resolver.Name(), len(paths))

	loaded, err := p.scanner.Load(config.ProjectPath, config.Folders, paths)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sfdeploy.ErrDiscoveryFailed, err)
	}
	for _, u := range loaded.Unmapped {
		p.logger.Warn("Skipping %s: not under a configured folder", u)
	}
	for _, m := range loaded.Missing {
		p.logger.Warn("Skipping %s: file not found", m)
	}

	plan := &Plan{Unmapped: loaded.Unmapped, Missing: loaded.Missing}

	var changed []sfdeploy.Artifact
	for _, a := range loaded.Artifacts {
		if p.store.HasChanged(a.Path, a.Content) {
			changed = append(changed, a)
		} else {
			plan.Skipped = append(plan.Skipped, a)
		}
	}

	changedTasks := make(map[string]*taskgraph.Node)
	var plain []sfdeploy.Artifact
	for _, a := range changed {
		if a.Kind != sfdeploy.KindTask {
			plain = append(plain, a)
			continue
		}
		node, ok := taskgraph.Parse(a.Path, a.Schema, a.Content)
		if !ok {
			p.logger.Warn("%s defines no task; applying it without suspending a task chain", a.Path)
			plain = append(plain, a)
			continue
		}
		changedTasks[a.Path] = node
	}

	plan.Graph, err = p.buildGraph(config, changed, changedTasks)
	if err != nil {
		return nil, err
	}
	plan.Order, err = plan.Graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, a := range changed {
		node, ok := changedTasks[a.Path]
		if !ok || node.Schedule == "" {
			continue
		}
		if err := taskgraph.ValidateSchedule(node.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("%s: task %s: %w", a.Path, node.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sort.SliceStable(plain, func(i, j int) bool { return plain[i].Path < plain[j].Path })
	for _, a := range plain {
		plan.Steps = append(plan.Steps, Step{Artifact: a})
	}

	taskSteps, err := chainSteps(plan.Graph, plan.Order, changed, changedTasks)
	if err != nil {
		return nil, err
	}
	plan.Steps = append(plan.Steps, taskSteps...)

	return plan, nil
}

// buildGraph adds every task in the task folders, then the changed
// definitions, which replace what is on disk.
func (p *Planner) buildGraph(config sfdeploy.DeploymentConfig, changed []sfdeploy.Artifact, changedTasks map[string]*taskgraph.Node) (*taskgraph.Graph, error) {
	graph := taskgraph.New()

	for _, folder := range config.TaskFolders() {
		paths, err := p.scanner.ListFolder(config.ProjectPath, folder.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", sfdeploy.ErrDiscoveryFailed, err)
		}
		loaded, err := p.scanner.Load(config.ProjectPath, config.Folders, paths)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", sfdeploy.ErrDiscoveryFailed, err)
		}
		for _, a := range loaded.Artifacts {
			if node, ok := taskgraph.Parse(a.Path, a.Schema, a.Content); ok {
				graph.Add(node)
			}
		}
	}

	definedBy := make(map[string]string, len(changedTasks))
	for _, a := range changed {
		node, ok := changedTasks[a.Path]
		if !ok {
			continue
		}
		if other, dup := definedBy[node.Name]; dup {
			return nil, fmt.Errorf("task %s is defined by both %s and %s: %w", node.Name, other, a.Path, sfdeploy.ErrInvalidConfig)
		}
		definedBy[node.Name] = a.Path
		graph.Add(node)
	}

	p.logger.Verbose("Task graph: %d task(s)", graph.Len())
	return graph, nil
}

// chainSteps orders changed tasks by chain, chains by the topological
// position of their first changed member.
func chainSteps(graph *taskgraph.Graph, order []*taskgraph.Node, changed []sfdeploy.Artifact, changedTasks map[string]*taskgraph.Node) ([]Step, error) {
	byPath := make(map[string]sfdeploy.Artifact, len(changed))
	for _, a := range changed {
		byPath[a.Path] = a
	}

	chains := make(map[string][]Step)
	var roots []string
	for _, node := range order {
		a, ok := byPath[node.Artifact]
		if !ok || changedTasks[a.Path] != node {
			continue
		}
		root, err := graph.RootOf(node.Name)
		if err != nil {
			return nil, err
		}
		rootSchema := a.Schema
		if rn, ok := graph.Node(root); ok {
			rootSchema = rn.Schema
		}
		if _, seen := chains[root]; !seen {
			roots = append(roots, root)
		}
		chains[root] = append(chains[root], Step{Artifact: a, Task: node, Root: root, RootSchema: rootSchema})
	}

	var steps []Step
	for _, root := range roots {
		steps = append(steps, chains[root]...)
	}
	return steps, nil
}
