package inference

import (
	"bufio"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"classifier-service/internal/conversion"
	"classifier-service/internal/models"
)

// Engine is the narrow surface the prediction pipeline depends on. The
// production implementation runs ONNX Runtime; tests substitute stubs.
type Engine interface {
	// Warmup runs one inference on a synthetic input so the first real
	// request does not pay session initialization costs.
	Warmup() error
	// Infer classifies one preprocessed tensor and returns all class scores
	// sorted by descending probability.
	Infer(t *conversion.Tensor) ([]models.ClassScore, error)
	// Ready reports whether the model and its labels are loaded.
	Ready() bool
	// Info describes the loaded model, or the attempted load when not ready.
	Info() models.ModelInfo
	// Close releases the runtime session and its tensors.
	Close() error
}

// ParseLabels reads a labels file with one "<index> <name>" pair per line.
// Blank lines are skipped; a line without a space is malformed because the
// class name would be indistinguishable from its index.
func ParseLabels(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	var classes []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		_, name, found := strings.Cut(line, " ")
		if !found {
			return nil, errors.Errorf("malformed label line %q, want \"<index> <name>\"", line)
		}
		classes = append(classes, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read labels")
	}
	return classes, nil
}

// LoadLabels parses the labels file at path.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open labels file")
	}
	defer f.Close()
	return ParseLabels(f)
}

// softmax converts raw logits into probabilities. The maximum logit is
// subtracted before exponentiation so large values cannot overflow.
func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
		}
	}
	exps := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		exps[i] = math.Exp(float64(v) - maxLogit)
		sum += exps[i]
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}

// buildScores pairs class names with softmax probabilities and sorts the
// result by descending probability. When the model emits more logits than
// there are labels, the unnamed tail is dropped.
func buildScores(classNames []string, logits []float32) []models.ClassScore {
	probs := softmax(logits)
	n := len(classNames)
	if len(probs) < n {
		n = len(probs)
	}
	scores := make([]models.ClassScore, 0, n)
	for i := 0; i < n; i++ {
		scores = append(scores, models.ClassScore{ClassName: classNames[i], Probability: probs[i]})
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Probability > scores[j].Probability
	})
	return scores
}
