package models

import "fmt"

// StageType identifies a pluggable dataset transformation stage.
type StageType string

const (
	StagePreprocess        StageType = "preprocess"
	StageFeatureEng        StageType = "feature_eng"
	StageAugmentAutoencode StageType = "autoencode"
	StageAugmentSample     StageType = "sampling"
	StageAutoML            StageType = "auto_ml"
	StageProfile           StageType = "job_profile"
)

// StageTypes lists every known stage, for exhaustive registration
// checks.
var StageTypes = []StageType{
	StagePreprocess,
	StageFeatureEng,
	StageAugmentAutoencode,
	StageAugmentSample,
	StageAutoML,
	StageProfile,
}

// ParseStageType validates a wire-format stage name.
func ParseStageType(s string) (StageType, error) {
	switch st := StageType(s); st {
	case StagePreprocess,
		StageFeatureEng,
		StageAugmentAutoencode,
		StageAugmentSample,
		StageAutoML,
		StageProfile:
		return st, nil
	default:
		return "", fmt.Errorf("unknown stage type: %q", s)
	}
}

func (s StageType) String() string {
	return string(s)
}

// ReplayedAtInference reports whether the stage's artifact must be
// replayed on raw rows at inference time. Only deterministic
// feature-space transforms qualify; augmentation alters the training
// distribution, AutoML and profiling do not touch the feature space.
func (s StageType) ReplayedAtInference() bool {
	switch s {
	case StagePreprocess, StageFeatureEng:
		return true
	case StageAugmentAutoencode, StageAugmentSample, StageAutoML, StageProfile:
		return false
	default:
		return false
	}
}

// ExtendsLineage reports whether a successful run of the stage
// produces a new dataset version. AutoML trains models from the input
// version and profiling annotates it; neither extends the chain.
func (s StageType) ExtendsLineage() bool {
	switch s {
	case StagePreprocess, StageFeatureEng, StageAugmentAutoencode, StageAugmentSample:
		return true
	case StageAutoML, StageProfile:
		return false
	default:
		return false
	}
}

// ArtifactName returns the blob name a completed stage stores its
// serialized transformer under, addressed by (dataset, version). The
// pipeline resolver depends on these names staying stable.
func (s StageType) ArtifactName() string {
	switch s {
	case StagePreprocess:
		return "preprocessor.bin"
	case StageFeatureEng:
		return "feature_pipeline.bin"
	case StageAutoML:
		return "leaderboard.bin"
	case StageProfile:
		return "profile.bin"
	default:
		return ""
	}
}
