package shared

import (
	"fmt"
	"path/filepath"
)

// DagKind describes how a task's file content and location are derived.
type DagKind string

const (
	// KindFile is a verbatim file: path, file name and content come straight from the spec.
	KindFile DagKind = "file"
	// KindDagYaml is a DAG definition in YAML that gets rendered into a Python DAG file.
	KindDagYaml DagKind = "dag_yaml"
	// KindDagFile is a user-authored Python DAG whose file name follows the generated naming convention.
	KindDagFile DagKind = "dag_file"
)

func ParseDagKind(s string) (DagKind, error) {
	switch DagKind(s) {
	case KindFile, KindDagYaml, KindDagFile:
		return DagKind(s), nil
	}
	return "", fmt.Errorf("unknown dag kind: %q", s)
}

// Generated reports whether the kind is scheduler-managed, i.e. subject to pause reconciliation.
func (k DagKind) Generated() bool {
	return k != KindFile
}

type ControlAction string

const (
	ActionApply  ControlAction = "apply"
	ActionDelete ControlAction = "delete"
)

type DagSpec struct {
	Kind     DagKind `json:"kind"`
	Path     string  `json:"path"`
	FileName string  `json:"fileName"`
	DagID    string  `json:"dagId"`
	Paused   bool    `json:"paused"`
	// Value carries the file content for KindFile and KindDagFile,
	// and the YAML DAG definition for KindDagYaml.
	Value string `json:"value"`
}

// DagTask is one desired-state change consumed from the task queue.
// Version is monotonically non-decreasing per Name and assigned by the producer.
type DagTask struct {
	Name      string        `json:"name"`
	Namespace string        `json:"namespace"`
	Version   int64         `json:"version"`
	Action    ControlAction `json:"action"`
	Spec      DagSpec       `json:"spec"`
}

// DagInstance is the last applied state for one dag name.
type DagInstance struct {
	Name     string
	Version  int64
	Kind     DagKind
	Path     string
	FileName string
	Content  string
}

// FilePath returns the full on-disk location of the instance's file.
func (d *DagInstance) FilePath() string {
	return filepath.Join(d.Path, d.FileName)
}

// UnregisteredDag is a dag whose file exists on disk but which the scheduler
// has not registered yet. It waits in the unregistered cache for a recheck.
type UnregisteredDag struct {
	DagID     string
	FilePath  string
	Namespace string
	Name      string
	Paused    bool
}
