// Package stage defines the contract between the orchestration engine
// and the pluggable transform implementations. The engine never looks
// inside a stage: it hands over dataset bytes plus options and gets
// back transformed bytes plus an optional serialized artifact.
package stage

import (
	"context"
	"fmt"

	"github.com/paceml-cloud/paceml/internal/models"
	"gorm.io/datatypes"
)

// Result is the output of one stage execution. Data is the transformed
// dataset (nil for stages that do not produce one, e.g. profiling);
// Artifact, when non-nil, is a serialized transformer to persist under
// the stage's artifact name.
type Result struct {
	Data     []byte
	Artifact []byte
}

// Executor runs one stage type.
type Executor interface {
	Run(ctx context.Context, data []byte, options datatypes.JSONMap) (*Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, data []byte, options datatypes.JSONMap) (*Result, error)

func (f ExecutorFunc) Run(ctx context.Context, data []byte, options datatypes.JSONMap) (*Result, error) {
	return f(ctx, data, options)
}

// Registry maps stage types to their executors.
type Registry struct {
	executors map[models.StageType]Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: map[models.StageType]Executor{}}
}

func (r *Registry) Register(st models.StageType, e Executor) *Registry {
	r.executors[st] = e
	return r
}

// Lookup returns the executor for a stage type, failing on stages no
// executor was registered for.
func (r *Registry) Lookup(st models.StageType) (Executor, error) {
	e, ok := r.executors[st]
	if !ok {
		return nil, fmt.Errorf("no executor registered for stage %q", st)
	}

	return e, nil
}

// Complete verifies an executor exists for every known stage type, so
// a worker refuses to start with a partial registry instead of failing
// jobs at dispatch.
func (r *Registry) Complete() error {
	for _, st := range models.StageTypes {
		if _, ok := r.executors[st]; !ok {
			return fmt.Errorf("no executor registered for stage %q", st)
		}
	}

	return nil
}
