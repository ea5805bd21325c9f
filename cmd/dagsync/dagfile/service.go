// Package dagfile resolves where a dag task's file lives, what it contains,
// and performs the whole-file write/delete primitives against the dag folder.
package dagfile

import (
	"fmt"
	"os"
	"path/filepath"

	"dagsync/cmd/dagsync/shared"

	"go.uber.org/zap"
)

type Service struct {
	// root is the dag folder the scheduler scans, e.g. /opt/airflow/dags.
	root string
}

func NewService(root string) *Service {
	return &Service{root: root}
}

// FilePath resolves the directory and file name for a task. Plain files keep
// the spec's file name; generated dags follow the <name>-<dagId>.py convention.
func (s *Service) FilePath(task *shared.DagTask) (string, string) {
	dir := filepath.Join(s.root, task.Spec.Path)
	if task.Spec.Kind == shared.KindFile {
		return dir, task.Spec.FileName
	}
	return dir, GeneratedFileName(task.Name, task.Spec.DagID)
}

// GeneratedFileName is the naming convention for scheduler-managed dag files.
func GeneratedFileName(name string, dagID string) string {
	return fmt.Sprintf("%s-%s.py", name, dagID)
}

// FileContent resolves the file content for a task. KindFile and KindDagFile
// carry their content verbatim; KindDagYaml is rendered into a Python dag.
func (s *Service) FileContent(task *shared.DagTask) (string, error) {
	switch task.Spec.Kind {
	case shared.KindDagYaml:
		return RenderDag(task.Spec.DagID, task.Spec.Value)
	default:
		return task.Spec.Value, nil
	}
}

// WriteFile writes content to dir/fileName, creating the directory tree if
// needed. The write is a full overwrite. Returns the full path written.
func (s *Service) WriteFile(dir string, fileName string, content string) (string, error) {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) {
		zap.S().Debugf("Folder %s does not exist, creating it", dir)
		err = os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create dag folder %s: %w", dir, err)
	}

	fullPath := filepath.Join(dir, fileName)
	zap.S().Debugf("Saving dag file to %s", fullPath)
	err = os.WriteFile(fullPath, []byte(content), 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to write dag file %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// DeleteFile removes a single dag file.
func (s *Service) DeleteFile(fullPath string) error {
	err := os.Remove(fullPath)
	if err != nil {
		return fmt.Errorf("failed to delete dag file %s: %w", fullPath, err)
	}
	return nil
}

// Exists reports whether a dag file is present on disk.
func (s *Service) Exists(fullPath string) bool {
	_, err := os.Stat(fullPath)
	return err == nil
}
