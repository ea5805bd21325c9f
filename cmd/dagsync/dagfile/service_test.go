package dagfile

import (
	"os"
	"path/filepath"
	"testing"

	"dagsync/cmd/dagsync/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/united-manufacturing-hub/umh-utils/logger"
)

func TestMain(m *testing.M) {
	_ = logger.New("DEVELOPMENT")
	os.Exit(m.Run())
}

func TestFilePath(t *testing.T) {
	s := NewService("/opt/airflow/dags")

	t.Run("plain file keeps its name", func(t *testing.T) {
		dir, fileName := s.FilePath(&shared.DagTask{
			Name: "helpers",
			Spec: shared.DagSpec{Kind: shared.KindFile, Path: "lib", FileName: "helpers.py"},
		})
		assert.Equal(t, "/opt/airflow/dags/lib", dir)
		assert.Equal(t, "helpers.py", fileName)
	})

	t.Run("generated dag follows the naming convention", func(t *testing.T) {
		dir, fileName := s.FilePath(&shared.DagTask{
			Name: "etl-orders",
			Spec: shared.DagSpec{Kind: shared.KindDagYaml, Path: "data", DagID: "etl_orders"},
		})
		assert.Equal(t, "/opt/airflow/dags/data", dir)
		assert.Equal(t, "etl-orders-etl_orders.py", fileName)
	})
}

func TestFileContent(t *testing.T) {
	s := NewService("/opt/airflow/dags")

	t.Run("verbatim for plain files", func(t *testing.T) {
		content, err := s.FileContent(&shared.DagTask{
			Spec: shared.DagSpec{Kind: shared.KindFile, Value: "x = 1\n"},
		})
		assert.NoError(t, err)
		assert.Equal(t, "x = 1\n", content)
	})

	t.Run("verbatim for dag_file", func(t *testing.T) {
		content, err := s.FileContent(&shared.DagTask{
			Spec: shared.DagSpec{Kind: shared.KindDagFile, Value: "from airflow import DAG\n"},
		})
		assert.NoError(t, err)
		assert.Equal(t, "from airflow import DAG\n", content)
	})

	t.Run("rendered for dag_yaml", func(t *testing.T) {
		content, err := s.FileContent(&shared.DagTask{
			Spec: shared.DagSpec{
				Kind:  shared.KindDagYaml,
				DagID: "etl_orders",
				Value: "schedule: \"@daily\"\nstartDate: \"2024-01-01\"\ntasks:\n  - name: extract\n    command: make extract\n",
			},
		})
		assert.NoError(t, err)
		assert.Contains(t, content, `dag_id="etl_orders"`)
		assert.Contains(t, content, "BashOperator")
	})

	t.Run("broken dag_yaml fails", func(t *testing.T) {
		_, err := s.FileContent(&shared.DagTask{
			Spec: shared.DagSpec{Kind: shared.KindDagYaml, DagID: "x", Value: ":::"},
		})
		assert.Error(t, err)
	})
}

func TestWriteAndDeleteFile(t *testing.T) {
	root := t.TempDir()
	s := NewService(root)

	dir := filepath.Join(root, "data", "nested")
	fullPath, err := s.WriteFile(dir, "etl.py", "print('v1')")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "etl.py"), fullPath)
	assert.True(t, s.Exists(fullPath))

	content, err := os.ReadFile(fullPath)
	require.NoError(t, err)
	assert.Equal(t, "print('v1')", string(content))

	// overwrite in place
	_, err = s.WriteFile(dir, "etl.py", "print('v2')")
	require.NoError(t, err)
	content, err = os.ReadFile(fullPath)
	require.NoError(t, err)
	assert.Equal(t, "print('v2')", string(content))

	err = s.DeleteFile(fullPath)
	assert.NoError(t, err)
	assert.False(t, s.Exists(fullPath))

	// deleting twice surfaces the error to the caller
	err = s.DeleteFile(fullPath)
	assert.Error(t, err)
}
