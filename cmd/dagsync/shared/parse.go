package shared

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ParseDagTask decodes and validates a task payload as produced by the desired-state producer.
func ParseDagTask(payload []byte) (*DagTask, error) {
	var task DagTask
	err := json.Unmarshal(payload, &task)
	if err != nil {
		return nil, err
	}

	if task.Name == "" {
		return nil, errors.New("task has no name")
	}
	if task.Version < 0 {
		return nil, fmt.Errorf("task %s has negative version %d", task.Name, task.Version)
	}
	switch task.Action {
	case ActionApply, ActionDelete:
	default:
		return nil, fmt.Errorf("task %s has unknown action %q", task.Name, task.Action)
	}
	if _, err = ParseDagKind(string(task.Spec.Kind)); err != nil {
		return nil, fmt.Errorf("task %s: %w", task.Name, err)
	}

	if task.Spec.Kind == KindFile {
		if task.Spec.FileName == "" {
			return nil, fmt.Errorf("task %s is a plain file but has no fileName", task.Name)
		}
	} else {
		if task.Spec.DagID == "" {
			return nil, fmt.Errorf("task %s is a %s but has no dagId", task.Name, task.Spec.Kind)
		}
	}

	return &task, nil
}
