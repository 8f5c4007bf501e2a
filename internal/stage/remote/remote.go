// Package remote delegates stage execution to an external transform
// service over HTTP. The engine stays free of ML code: it ships
// dataset bytes and options to the service owning the stage and gets
// transformed bytes plus a serialized artifact back.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/paceml-cloud/paceml/internal/models"
	"github.com/paceml-cloud/paceml/internal/stage"
)

type Executor struct {
	base   string
	stage  models.StageType
	client *http.Client
}

// New returns an executor that runs one stage type against the
// transform service rooted at base.
func New(base string, st models.StageType) *Executor {
	return &Executor{
		base:   base,
		stage:  st,
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Registry builds a complete registry with every stage delegated to
// the transform service at base.
func Registry(base string) *stage.Registry {
	r := stage.NewRegistry()
	for _, st := range models.StageTypes {
		r.Register(st, New(base, st))
	}
	return r
}

type request struct {
	Options datatypes.JSONMap `json:"options,omitempty"`
	Data    []byte            `json:"data"`
}

type response struct {
	Data     []byte `json:"data"`
	Artifact []byte `json:"artifact"`
	Error    string `json:"error,omitempty"`
}

func (e *Executor) Run(ctx context.Context, data []byte, options datatypes.JSONMap) (*stage.Result, error) {
	payload, err := json.Marshal(&request{Options: options, Data: data})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%v/stages/%v", e.base, e.stage),
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %v request failed", e.stage)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &response{}
	if err := json.Unmarshal(buf, out); err != nil {
		return nil, errors.Wrapf(err, "stage %v returned malformed response", e.stage)
	}

	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return nil, fmt.Errorf("stage %v failed: %v", e.stage, out.Error)
		}
		return nil, fmt.Errorf("stage %v failed with status %v", e.stage, resp.StatusCode)
	}

	return &stage.Result{Data: out.Data, Artifact: out.Artifact}, nil
}
