package services

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/specbridge/specbridge-backend/internal/platform/logger"
)

const savePipelineEnv = "DOCUMENT_SAVE_PIPELINE_YAML"

//go:embed save_pipeline.yaml
var savePipelineFS embed.FS

// fallback stage set used when YAML is missing or invalid
var fallbackSaveStages = []string{
	"parse",
	"validate",
	"reconcile",
	"persist_raw",
	"audit",
	"publish",
}

type yamlPipelineSpec struct {
	Pipeline string          `yaml:"pipeline"`
	Version  int             `yaml:"version"`
	Stages   []yamlStageSpec `yaml:"stages"`
}

type yamlStageSpec struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

type pipelineRuntime struct {
	StageOrder []string
	Enabled    map[string]bool
}

var (
	runtimeOnce  sync.Once
	runtimeCache *pipelineRuntime
	runtimeErr   error
)

func currentSavePipeline(log *logger.Logger) *pipelineRuntime {
	runtimeOnce.Do(func() {
		runtimeCache, runtimeErr = loadSavePipeline()
	})
	if runtimeErr != nil {
		if log != nil {
			log.Warn("document_save: pipeline spec load failed; using fallback", "error", runtimeErr)
		}
		return nil
	}
	return runtimeCache
}

// saveStageEnabled reports whether a save-pipeline stage should run. Unknown
// stages and fallback mode default to enabled; parse/validate/reconcile are
// core stages and ignore the toggle.
func saveStageEnabled(log *logger.Logger, name string) bool {
	rt := currentSavePipeline(log)
	if rt == nil {
		return true
	}
	enabled, ok := rt.Enabled[name]
	if !ok {
		return true
	}
	return enabled
}

func loadSavePipeline() (*pipelineRuntime, error) {
	data, err := readSavePipelineSpec()
	if err != nil {
		return nil, err
	}

	var spec yamlPipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if spec.Pipeline != "document_save" {
		return nil, fmt.Errorf("unexpected pipeline %q", spec.Pipeline)
	}
	if len(spec.Stages) == 0 {
		return nil, errors.New("pipeline spec has no stages")
	}

	rt := &pipelineRuntime{Enabled: make(map[string]bool, len(spec.Stages))}
	for _, stage := range spec.Stages {
		name := strings.TrimSpace(stage.Name)
		if name == "" {
			continue
		}
		rt.StageOrder = append(rt.StageOrder, name)
		rt.Enabled[name] = stage.Enabled == nil || *stage.Enabled
	}
	return rt, nil
}

func readSavePipelineSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(savePipelineEnv)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}
	return savePipelineFS.ReadFile("save_pipeline.yaml")
}
