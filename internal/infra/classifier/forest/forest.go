// Package forest evaluates a tree ensemble exported from the training job.
package forest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/yanqian/careops/internal/domain/mortality"
)

const leaf = -1

// Tree mirrors the flat node arrays of a fitted decision tree.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Model is the serialized ensemble.
type Model struct {
	NFeatures int      `json:"n_features"`
	Columns   []string `json:"columns,omitempty"`
	Trees     []Tree   `json:"trees"`
}

// Classifier averages per-tree leaf distributions, the way a random forest
// computes predict_proba.
type Classifier struct {
	model  Model
	logger *slog.Logger
}

// Decode reads and validates a serialized model.
func Decode(r io.Reader) (Model, error) {
	var model Model
	if err := json.NewDecoder(r).Decode(&model); err != nil {
		return Model{}, fmt.Errorf("decode forest: %w", err)
	}
	if err := model.Validate(); err != nil {
		return Model{}, err
	}
	return model, nil
}

// Validate checks the node arrays are consistent so evaluation cannot index out of range.
func (m Model) Validate() error {
	if m.NFeatures <= 0 {
		return errors.New("forest n_features must be positive")
	}
	if len(m.Columns) > 0 && len(m.Columns) != m.NFeatures {
		return fmt.Errorf("forest lists %d columns for %d features", len(m.Columns), m.NFeatures)
	}
	if len(m.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for i, tree := range m.Trees {
		if err := tree.validate(m.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t Tree) validate(nFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == leaf {
			if right != leaf {
				return fmt.Errorf("node %d has only one child", i)
			}
			if len(t.Value[i]) != 2 {
				return fmt.Errorf("leaf %d must hold two class weights", i)
			}
			if t.Value[i][0] < 0 || t.Value[i][1] < 0 || t.Value[i][0]+t.Value[i][1] <= 0 {
				return fmt.Errorf("leaf %d has invalid class weights", i)
			}
			continue
		}
		// children always follow their parent in the exported order, so this also rules out cycles
		if left <= i || left >= n || right <= i || right >= n {
			return fmt.Errorf("node %d has out of range children", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("node %d splits on unknown feature %d", i, t.Feature[i])
		}
	}
	return nil
}

// New constructs a classifier over a validated model.
func New(model Model, logger *slog.Logger) (*Classifier, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "classifier.forest")
	logger.Info("forest loaded", "trees", len(model.Trees), "features", model.NFeatures)
	return &Classifier{model: model, logger: logger}, nil
}

// CheckColumns verifies the model was trained on the given column order.
func (c *Classifier) CheckColumns(columns []string) error {
	if len(columns) != c.model.NFeatures {
		return fmt.Errorf("model expects %d features, preparer produces %d", c.model.NFeatures, len(columns))
	}
	if len(c.model.Columns) == 0 {
		return nil
	}
	for i, name := range columns {
		if c.model.Columns[i] != name {
			return fmt.Errorf("feature %d is %q in the model but %q in the schema", i, c.model.Columns[i], name)
		}
	}
	return nil
}

// PredictProbability returns the averaged class distribution for one row.
func (c *Classifier) PredictProbability(ctx context.Context, features mortality.FeatureVector) (mortality.ClassProbabilities, error) {
	if err := ctx.Err(); err != nil {
		return mortality.ClassProbabilities{}, err
	}
	if features.Len() != c.model.NFeatures {
		return mortality.ClassProbabilities{}, fmt.Errorf("feature vector has %d values, model expects %d", features.Len(), c.model.NFeatures)
	}
	var positive float64
	for _, tree := range c.model.Trees {
		weights := tree.Value[tree.leafFor(features.Values)]
		positive += weights[1] / (weights[0] + weights[1])
	}
	positive /= float64(len(c.model.Trees))
	return mortality.ClassProbabilities{Negative: 1 - positive, Positive: positive}, nil
}

func (t Tree) leafFor(x []float64) int {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}

var _ mortality.Classifier = (*Classifier)(nil)
