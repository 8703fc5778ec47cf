package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vvka-141/sfdeploy/internal/changeset"
	"github.com/vvka-141/sfdeploy/internal/files/scanner"
	"github.com/vvka-141/sfdeploy/internal/logging"
	"github.com/vvka-141/sfdeploy/internal/services"
	"github.com/vvka-141/sfdeploy/internal/taskgraph"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks <project_path>",
	Short: "Print the task dependency tree",
	Long: `Tasks parses every task definition in the task folders and prints the
chains as trees, each under its root. Circular dependencies and invalid
schedules are reported as errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	settings, err := loadSettings(args[0], configOverridesFor(verbose))
	if err != nil {
		return err
	}
	store, err := loadStore(settings, uuid.NewString())
	if err != nil {
		return err
	}

	fileScanner := scanner.NewScanner()
	planner := services.NewPlanner(changeset.NewExplicit(nil), store, fileScanner,
		logging.NewConsoleLogger(verbose))

	plan, err := planner.Plan(context.Background(), settings.Deployment)
	if err != nil {
		return fmt.Errorf("task graph: %w", err)
	}
	return renderTaskTree(cmd.OutOrStdout(), plan.Graph)
}

// renderTaskTree prints every chain as a tree. A task hangs under
// graph.Parent; its other predecessors are listed after it. Roots and siblings
// are sorted by name.
func renderTaskTree(w io.Writer, graph *taskgraph.Graph) error {
	bw := &errWriter{w: w}

	children := make(map[string][]*taskgraph.Node)
	var roots []string
	external := make(map[string]bool)
	for _, n := range graph.Nodes() {
		if n.IsRoot() {
			roots = append(roots, n.Name)
			continue
		}
		parent := graph.Parent(n)
		children[parent] = append(children[parent], n)
		if _, ok := graph.Node(parent); !ok && !external[parent] {
			external[parent] = true
			roots = append(roots, parent)
		}
	}
	sort.Strings(roots)
	for _, c := range children {
		sort.Slice(c, func(i, j int) bool { return c[i].Name < c[j].Name })
	}

	seen := make(map[string]bool)
	var walk func(name, prefix string)
	walk = func(name, prefix string) {
		kids := children[name]
		for i, n := range kids {
			branch, indent := "├── ", "│   "
			if i == len(kids)-1 {
				branch, indent = "└── ", "    "
			}
			bw.printf("%s%s%s\n", prefix, branch, describeTask(graph, n))
			if seen[n.Name] {
				continue
			}
			seen[n.Name] = true
			walk(n.Name, prefix+indent)
		}
	}

	for _, root := range roots {
		if n, ok := graph.Node(root); ok {
			bw.printf("%s\n", describeTask(graph, n))
		} else {
			bw.printf("%s (not defined in this repository)\n", root)
		}
		seen[root] = true
		walk(root, "")
	}
	bw.printf("%d task(s) in %d chain(s)\n", graph.Len(), len(roots))
	return bw.err
}

func describeTask(graph *taskgraph.Graph, n *taskgraph.Node) string {
	s := n.Schema + "." + n.Name
	if n.Schedule != "" {
		s += fmt.Sprintf(" [schedule %s]", n.Schedule)
	}
	if len(n.DependsOn) > 1 {
		parent := graph.Parent(n)
		s += " [also after"
		for _, d := range n.DependsOn {
			if d != parent {
				s += " " + d
			}
		}
		s += "]"
	}
	return s + "  " + n.Artifact
}
