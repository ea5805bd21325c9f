package dagfile

import (
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DagDefinition is the YAML payload carried by KindDagYaml tasks.
type DagDefinition struct {
	Owner     string          `yaml:"owner"`
	Schedule  string          `yaml:"schedule"`
	StartDate string          `yaml:"startDate"`
	Catchup   bool            `yaml:"catchup"`
	Tags      []string        `yaml:"tags"`
	Tasks     []TaskDefinition `yaml:"tasks"`
}

type TaskDefinition struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
}

var dagTemplate = template.Must(template.New("dag").Parse(`from datetime import datetime

from airflow import DAG
from airflow.operators.bash import BashOperator

with DAG(
    dag_id="{{ .DagID }}",
    schedule="{{ .Def.Schedule }}",
    start_date=datetime.fromisoformat("{{ .Def.StartDate }}"),
    catchup={{ if .Def.Catchup }}True{{ else }}False{{ end }},
    default_args={"owner": "{{ .Def.Owner }}"},
    tags=[{{ range $i, $t := .Def.Tags }}{{ if $i }}, {{ end }}"{{ $t }}"{{ end }}],
) as dag:
{{- range .Def.Tasks }}
    {{ .Name }} = BashOperator(task_id="{{ .Name }}", bash_command="{{ .Command }}")
{{- end }}
{{- if gt (len .Def.Tasks) 1 }}

    {{ .Chain }}
{{- end }}
`))

// RenderDag turns a YAML dag definition into a Python dag file for the
// scheduler. Tasks are chained in declaration order.
func RenderDag(dagID string, definition string) (string, error) {
	var def DagDefinition
	err := yaml.Unmarshal([]byte(definition), &def)
	if err != nil {
		return "", fmt.Errorf("failed to parse dag definition for %s: %w", dagID, err)
	}
	if len(def.Tasks) == 0 {
		return "", fmt.Errorf("dag definition for %s has no tasks", dagID)
	}
	if def.StartDate == "" {
		return "", fmt.Errorf("dag definition for %s has no startDate", dagID)
	}
	if def.Owner == "" {
		def.Owner = "dagsync"
	}

	names := make([]string, 0, len(def.Tasks))
	for _, t := range def.Tasks {
		names = append(names, t.Name)
	}

	var sb strings.Builder
	err = dagTemplate.Execute(&sb, struct {
		DagID string
		Def   DagDefinition
		Chain string
	}{DagID: dagID, Def: def, Chain: strings.Join(names, " >> ")})
	if err != nil {
		return "", fmt.Errorf("failed to render dag %s: %w", dagID, err)
	}
	return sb.String(), nil
}
