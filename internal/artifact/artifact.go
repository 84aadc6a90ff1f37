// Package artifact persists trained model pairs. An artifact is two
// files, <stat>_regressor.json and <stat>_classifier.json, that only
// count as present together: save is atomic as a unit and load refuses a
// torn pair, so inference can never run against half a training run.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna/propcast/internal/model"
)

// MissingArtifactError reports a requested artifact that does not exist
// or is incomplete on disk.
type MissingArtifactError struct {
	StatType string
	Path     string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("model artifact for %q missing or incomplete: %s (train models first)", e.StatType, e.Path)
}

// IsMissing reports whether err is a MissingArtifactError.
func IsMissing(err error) bool {
	var target *MissingArtifactError
	return errors.As(err, &target)
}

// Artifact is one trained model pair with the feature columns frozen at
// training time. Immutable once saved; consumers must use the frozen
// lists, never whatever the current engineer happens to produce.
type Artifact struct {
	StatType           string            `json:"stat_type"`
	RunID              uuid.UUID         `json:"run_id"`
	TrainedAt          time.Time         `json:"trained_at"`
	Regressor          *model.Regressor  `json:"regressor"`
	RegressorFeatures  []string          `json:"regressor_features"`
	Classifier         *model.Classifier `json:"classifier"`
	ClassifierFeatures []string          `json:"classifier_features"`
}

// half is the on-disk payload of one file of the pair.
type half struct {
	StatType       string            `json:"stat_type"`
	RunID          uuid.UUID         `json:"run_id"`
	TrainedAt      time.Time         `json:"trained_at"`
	FeatureColumns []string          `json:"feature_columns"`
	Regressor      *model.Regressor  `json:"regressor,omitempty"`
	Classifier     *model.Classifier `json:"classifier,omitempty"`
}

func regressorPath(dir, statType string) string {
	return filepath.Join(dir, statType+"_regressor.json")
}

func classifierPath(dir, statType string) string {
	return filepath.Join(dir, statType+"_classifier.json")
}

// Save writes both halves of the pair. Each half lands in a temp file
// first and the renames happen only after both writes succeed, so a
// failure cannot leave one fresh file next to a stale or absent partner.
func Save(a *Artifact, dir string) error {
	if a.Regressor == nil || a.Classifier == nil {
		return fmt.Errorf("saving artifact for %q: both models required", a.StatType)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating model dir: %w", err)
	}

	regHalf := half{
		StatType:       a.StatType,
		RunID:          a.RunID,
		TrainedAt:      a.TrainedAt,
		FeatureColumns: a.RegressorFeatures,
		Regressor:      a.Regressor,
	}
	clfHalf := half{
		StatType:       a.StatType,
		RunID:          a.RunID,
		TrainedAt:      a.TrainedAt,
		FeatureColumns: a.ClassifierFeatures,
		Classifier:     a.Classifier,
	}

	regTmp, err := writeTemp(dir, regHalf)
	if err != nil {
		return fmt.Errorf("writing regressor half: %w", err)
	}
	clfTmp, err := writeTemp(dir, clfHalf)
	if err != nil {
		os.Remove(regTmp)
		return fmt.Errorf("writing classifier half: %w", err)
	}

	regFinal := regressorPath(dir, a.StatType)
	clfFinal := classifierPath(dir, a.StatType)

	if err := os.Rename(regTmp, regFinal); err != nil {
		os.Remove(regTmp)
		os.Remove(clfTmp)
		return fmt.Errorf("publishing regressor half: %w", err)
	}
	if err := os.Rename(clfTmp, clfFinal); err != nil {
		// Roll the first half back so a later load fails closed instead
		// of pairing the new regressor with an old classifier.
		os.Remove(regFinal)
		os.Remove(clfTmp)
		return fmt.Errorf("publishing classifier half: %w", err)
	}
	return nil
}

func writeTemp(dir string, payload half) (string, error) {
	f, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Load reads the model pair for a stat type. Either half missing or
// unreadable yields MissingArtifactError.
func Load(dir, statType string) (*Artifact, error) {
	regHalf, err := readHalf(regressorPath(dir, statType), statType)
	if err != nil {
		return nil, err
	}
	clfHalf, err := readHalf(classifierPath(dir, statType), statType)
	if err != nil {
		return nil, err
	}

	if regHalf.Regressor == nil || !regHalf.Regressor.Fitted {
		return nil, &MissingArtifactError{StatType: statType, Path: regressorPath(dir, statType)}
	}
	if clfHalf.Classifier == nil || !clfHalf.Classifier.Fitted {
		return nil, &MissingArtifactError{StatType: statType, Path: classifierPath(dir, statType)}
	}

	return &Artifact{
		StatType:           statType,
		RunID:              regHalf.RunID,
		TrainedAt:          regHalf.TrainedAt,
		Regressor:          regHalf.Regressor,
		RegressorFeatures:  regHalf.FeatureColumns,
		Classifier:         clfHalf.Classifier,
		ClassifierFeatures: clfHalf.FeatureColumns,
	}, nil
}

func readHalf(path, statType string) (*half, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingArtifactError{StatType: statType, Path: path}
		}
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	var h half
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("decoding artifact %s: %w", path, err)
	}
	return &h, nil
}

// Exists reports whether both halves of the pair are on disk.
func Exists(dir, statType string) bool {
	if _, err := os.Stat(regressorPath(dir, statType)); err != nil {
		return false
	}
	if _, err := os.Stat(classifierPath(dir, statType)); err != nil {
		return false
	}
	return true
}
