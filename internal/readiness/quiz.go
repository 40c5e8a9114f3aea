// File path: internal/readiness/quiz.go
package readiness

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/plainlyai/enablr/internal/common"
)

//go:embed quiz.yaml
var defaultQuizYAML []byte

// Option is one selectable answer.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
	Score int    `yaml:"score" json:"-"`
}

// Question is one quiz step.
type Question struct {
	ID       string   `yaml:"id" json:"id"`
	Question string   `yaml:"question" json:"question"`
	Options  []Option `yaml:"options" json:"options"`
}

// Level is a result band; a percentage at or above Min earns it.
type Level struct {
	Min   int    `yaml:"min" json:"min"`
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

// Quiz is the readiness questionnaire with its scoring bands.
type Quiz struct {
	Questions []Question `yaml:"questions" json:"questions"`
	Levels    []Level    `yaml:"levels" json:"levels"`
}

// Result is the outcome of Evaluate.
type Result struct {
	Score    int    `json:"score"`
	Raw      int    `json:"raw"`
	MaxScore int    `json:"maxScore"`
	Level    string `json:"level"`
	Label    string `json:"label"`
}

// Default returns the built-in quiz.
func Default() (*Quiz, error) {
	return Parse(defaultQuizYAML)
}

// Parse decodes a quiz definition and checks it is usable.
func Parse(data []byte) (*Quiz, error) {
	var quiz Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return nil, fmt.Errorf("parse readiness quiz: %w", err)
	}
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("readiness quiz has no questions")
	}
	if len(quiz.Levels) == 0 {
		return nil, fmt.Errorf("readiness quiz has no levels")
	}
	sort.SliceStable(quiz.Levels, func(i, j int) bool { return quiz.Levels[i].Min > quiz.Levels[j].Min })
	return &quiz, nil
}

// MaxScore is the sum of each question's best option.
func (q *Quiz) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		best := 0
		for _, opt := range question.Options {
			if opt.Score > best {
				best = opt.Score
			}
		}
		total += best
	}
	return total
}

// Evaluate scores answers keyed by question id. Every question must be
// answered with one of its option values.
func (q *Quiz) Evaluate(answers map[string]string) (Result, error) {
	raw := 0
	for _, question := range q.Questions {
		value, ok := answers[question.ID]
		if !ok || value == "" {
			return Result{}, common.NewValidationError(question.ID, "answer required")
		}
		opt, found := question.option(value)
		if !found {
			return Result{}, common.NewValidationError(question.ID, fmt.Sprintf("unknown answer %q", value))
		}
		raw += opt.Score
	}
	for id := range answers {
		if !q.hasQuestion(id) {
			return Result{}, common.NewValidationError(id, "unknown question")
		}
	}
	max := q.MaxScore()
	percent := 0
	if max > 0 {
		percent = int(math.Round(float64(raw) / float64(max) * 100))
	}
	level := q.Levels[len(q.Levels)-1]
	for _, candidate := range q.Levels {
		if percent >= candidate.Min {
			level = candidate
			break
		}
	}
	return Result{Score: percent, Raw: raw, MaxScore: max, Level: level.Key, Label: level.Label}, nil
}

func (q Question) option(value string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

func (q *Quiz) hasQuestion(id string) bool {
	for _, question := range q.Questions {
		if question.ID == id {
			return true
		}
	}
	return false
}
