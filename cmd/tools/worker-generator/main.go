// cmd/tools/worker-generator/main.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"leadflow-workers/pkg/registry"
)

// WorkerData feeds the templates for one activity.
type WorkerData struct {
	Name          string
	PackageName   string
	TaskType      string
	Category      string
	Description   string
	TimeoutMillis int64
	InputFields   []Field
	OutputFields  []Field
}

type Field struct {
	Name    string
	GoType  string
	JSONTag string
}

// parseSchema returns the schema's properties as sorted fields. Properties not
// listed in "required" get omitempty.
func parseSchema(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if req, ok := schema["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		tag := name
		if !required[name] {
			tag += ",omitempty"
		}
		fields = append(fields, Field{
			Name:    goFieldName(name),
			GoType:  goType(details),
			JSONTag: fmt.Sprintf("`json:%q`", tag),
		})
	}
	return fields
}

func goType(details map[string]interface{}) string {
	switch details["type"] {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		if items, ok := details["items"].(map[string]interface{}); ok {
			if t := goType(items); t != "interface{}" {
				return "[]" + t
			}
		}
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// goFieldName turns a camelCase JSON name into an exported Go name with the
// usual initialisms: leadId -> LeadID, failedServerIds -> FailedServerIDs.
func goFieldName(name string) string {
	var words []string
	start := 0
	for i := 1; i < len(name); i++ {
		if name[i] >= 'A' && name[i] <= 'Z' {
			words = append(words, name[start:i])
			start = i
		}
	}
	words = append(words, name[start:])

	var b strings.Builder
	for _, w := range words {
		switch strings.ToLower(w) {
		case "id":
			b.WriteString("ID")
		case "ids":
			b.WriteString("IDs")
		case "url":
			b.WriteString("URL")
		default:
			b.WriteString(strings.ToUpper(w[:1]) + w[1:])
		}
	}
	return b.String()
}

func newWorkerData(a registry.Activity) WorkerData {
	timeout, err := a.TimeoutDuration(defaultTimeout)
	if err != nil || timeout <= 0 {
		timeout = defaultTimeout
	}
	return WorkerData{
		Name:          a.DisplayName,
		PackageName:   strings.ReplaceAll(a.TaskType, "-", ""),
		TaskType:      a.TaskType,
		Category:      a.Category,
		Description:   a.Description,
		TimeoutMillis: timeout.Milliseconds(),
		InputFields:   parseSchema(a.InputSchema),
		OutputFields:  parseSchema(a.OutputSchema),
	}
}

const defaultTimeout = 10 * time.Second

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .GoType }} {{ .JSONTag }}
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .Name }} {{ .GoType }} {{ .JSONTag }}
{{- end }}
}
`

const configTemplate = `package {{ .PackageName }}

import (
	"fmt"
	"time"

	"leadflow-workers/internal/common/config"
)

type Config struct {
	Enabled       bool          ` + "`mapstructure:\"enabled\"`" + `
	MaxJobsActive int           ` + "`mapstructure:\"max_jobs_active\"`" + `
	Timeout       time.Duration ` + "`mapstructure:\"timeout\"`" + `
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       {{ .TimeoutMillis }} * time.Millisecond,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func LoadConfig(appCfg *config.Config) *Config {
	cfg := DefaultConfig()
	if appCfg == nil {
		return cfg
	}
	w := config.GetWorkerConfig(appCfg, TaskType)
	cfg.Enabled = w.Enabled
	if w.MaxJobsActive > 0 {
		cfg.MaxJobsActive = w.MaxJobsActive
	}
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	return cfg
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"leadflow-workers/internal/common/camunda"
	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/workers"
)

const TaskType = "{{ .TaskType }}"

// Handler: {{ .Description }}
type Handler struct {
	config       *Config
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, errorHandler *errors.ErrorHandler, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		errorHandler: errorHandler,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := errors.NewParseError(err)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := workers.Classify(TaskType, err)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return stdErr
	}

	return camunda.CompleteJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	return nil, fmt.Errorf("%s is not implemented", TaskType)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`

var templates = map[string]*template.Template{
	"models.go":  template.Must(template.New("models").Parse(modelsTemplate)),
	"config.go":  template.Must(template.New("config").Parse(configTemplate)),
	"handler.go": template.Must(template.New("handler").Parse(handlerTemplate)),
}

// render returns the formatted source of every generated file.
func render(data WorkerData) (map[string][]byte, error) {
	out := make(map[string][]byte, len(templates))
	for name, tmpl := range templates {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		out[name] = src
	}
	return out, nil
}

// generate writes the worker package under root. Existing files are kept
// unless force is set; models.go is always rewritten from the schema.
func generate(root string, a registry.Activity, force bool) (string, error) {
	data := newWorkerData(a)
	files, err := render(data)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(root, "internal", "workers", data.Category, data.TaskType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	for name, src := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !force && name != "models.go" {
			continue
		}
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func main() {
	registryPath := flag.String("registry", "configs/activity-registry.json", "path to activity registry")
	taskType := flag.String("task", "", "task type to generate (default: all)")
	root := flag.String("root", ".", "module root")
	force := flag.Bool("force", false, "overwrite existing handler and config files")
	flag.Parse()

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load registry: %v\n", err)
		os.Exit(1)
	}

	for _, a := range reg.Activities {
		if *taskType != "" && a.TaskType != *taskType {
			continue
		}
		dir, err := generate(*root, a, *force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", a.TaskType, err)
			os.Exit(1)
		}
		fmt.Printf("generated %s\n", dir)
	}
}
