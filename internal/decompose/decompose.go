// Package decompose loads and validates the task list produced by the
// decomposition agent.
//
// The artifact is the contract between planning and execution: every task
// for every wave is known up front, ids are stable, and dependencies may
// only reach into strictly earlier waves. Invalid input is rejected with
// the full violation list. One narrow class of defect is auto-correctable
// on request: non-contiguous wave numbering can be renumbered while
// preserving order. Nothing is ever corrected silently.
package decompose

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/riptide-sh/riptide/internal/errors"
	"github.com/riptide-sh/riptide/internal/graph"
)

// idPattern is the required shape of a task id.
var idPattern = regexp.MustCompile(`^T[0-9]+$`)

// TaskSpec is one task as it appears in the decomposition artifact.
type TaskSpec struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	Agent       string   `json:"agent" yaml:"agent"`
	Wave        int      `json:"wave" yaml:"wave"`
	DependsOn   []string `json:"depends_on" yaml:"depends_on"`

	// NewTestsRequired defaults to true; a task opts out explicitly at
	// decomposition time (e.g. a pure rename), never after the fact.
	NewTestsRequired *bool `json:"new_tests_required" yaml:"new_tests_required"`
}

// TaskList is the parsed decomposition artifact.
type TaskList struct {
	Tasks []TaskSpec `json:"tasks" yaml:"tasks"`
}

// Load reads a task list from a JSON or YAML file, chosen by extension.
// Both a bare array and a {"tasks": [...]} wrapper are accepted.
func Load(path string) (*TaskList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task list: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) (*TaskList, error) {
	var list TaskList
	if err := json.Unmarshal(data, &list); err == nil && len(list.Tasks) > 0 {
		return &list, nil
	}
	var bare []TaskSpec
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse task list JSON: %w", err)
	}
	return &TaskList{Tasks: bare}, nil
}

func parseYAML(data []byte) (*TaskList, error) {
	var list TaskList
	if err := yaml.Unmarshal(data, &list); err == nil && len(list.Tasks) > 0 {
		return &list, nil
	}
	var bare []TaskSpec
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse task list YAML: %w", err)
	}
	return &TaskList{Tasks: bare}, nil
}

// Validate checks the list against the artifact contract and returns a
// SchemaError carrying every violation found, or nil when the list is
// valid. knownRoles is the configured agent role set.
func Validate(list *TaskList, knownRoles []string) error {
	var violations []string

	if list == nil || len(list.Tasks) == 0 {
		return &errors.SchemaError{
			Subject:    "task list",
			Violations: []string{"no tasks defined"},
		}
	}

	roles := make(map[string]bool, len(knownRoles))
	for _, r := range knownRoles {
		roles[r] = true
	}

	byID := make(map[string]TaskSpec, len(list.Tasks))
	for _, t := range list.Tasks {
		if !idPattern.MatchString(t.ID) {
			violations = append(violations,
				fmt.Sprintf("task id %q does not match T<number>", t.ID))
			continue
		}
		if _, dup := byID[t.ID]; dup {
			violations = append(violations, fmt.Sprintf("duplicate task id %s", t.ID))
			continue
		}
		byID[t.ID] = t
	}

	for _, t := range list.Tasks {
		if t.Wave < 1 {
			violations = append(violations,
				fmt.Sprintf("task %s: wave %d is below 1", t.ID, t.Wave))
		}
		if strings.TrimSpace(t.Description) == "" {
			violations = append(violations,
				fmt.Sprintf("task %s: description is empty", t.ID))
		}
		if !roles[t.Agent] {
			violations = append(violations,
				fmt.Sprintf("task %s: agent %q is not a known role", t.ID, t.Agent))
		}
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				violations = append(violations,
					fmt.Sprintf("task %s depends on itself", t.ID))
				continue
			}
			d, ok := byID[dep]
			if !ok {
				violations = append(violations,
					fmt.Sprintf("task %s depends on unknown task %s", t.ID, dep))
				continue
			}
			if d.Wave >= t.Wave {
				violations = append(violations, fmt.Sprintf(
					"task %s (wave %d) depends on %s (wave %d); dependencies must be in strictly earlier waves",
					t.ID, t.Wave, dep, d.Wave))
			}
		}
	}

	if len(violations) > 0 {
		return &errors.SchemaError{Subject: "task list", Violations: violations}
	}
	return nil
}

// NormalizeWaves renumbers non-contiguous waves to 1..N, preserving the
// relative order. Returns a description of each change applied, empty when
// the numbering was already contiguous. This is the only auto-correction
// the engine performs, and only when explicitly requested.
func NormalizeWaves(list *TaskList) []string {
	present := map[int]bool{}
	for _, t := range list.Tasks {
		if t.Wave >= 1 {
			present[t.Wave] = true
		}
	}
	waves := make([]int, 0, len(present))
	for w := range present {
		waves = append(waves, w)
	}
	sort.Ints(waves)

	mapping := make(map[int]int, len(waves))
	for i, w := range waves {
		mapping[w] = i + 1
	}

	var fixes []string
	for i := range list.Tasks {
		old := list.Tasks[i].Wave
		if renum, ok := mapping[old]; ok && renum != old {
			list.Tasks[i].Wave = renum
			fixes = append(fixes,
				fmt.Sprintf("task %s: wave %d renumbered to %d", list.Tasks[i].ID, old, renum))
		}
	}
	return fixes
}

// ToGraphTasks converts a validated list into graph tasks in pending state,
// preserving artifact order.
func ToGraphTasks(list *TaskList) []graph.Task {
	tasks := make([]graph.Task, 0, len(list.Tasks))
	for _, t := range list.Tasks {
		required := true
		if t.NewTestsRequired != nil {
			required = *t.NewTestsRequired
		}
		deps := t.DependsOn
		if deps == nil {
			deps = []string{}
		}
		tasks = append(tasks, graph.Task{
			ID:               t.ID,
			Description:      t.Description,
			Agent:            t.Agent,
			Wave:             t.Wave,
			DependsOn:        deps,
			Status:           graph.StatusPending,
			NewTestsRequired: required,
			ReviewStatus:     graph.ReviewPending,
			CriticalFindings: []string{},
			AdvisoryFindings: []string{},
		})
	}
	return tasks
}
