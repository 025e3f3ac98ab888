package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/concordhq/concord/internal/survey"
)

// Scenario defines one scripted annotation sitting.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rater is the acting rater's name.
	Rater string `yaml:"rater"`

	// Limit overrides the session cap. Zero means the default.
	Limit int `yaml:"limit,omitempty"`

	// Pool is the item pool, in creation order.
	Pool []PoolItem `yaml:"pool"`

	// FailSubmits lists 1-based sink submit attempts that fail. The
	// counter spans the whole scenario, including retry passes.
	FailSubmits []int `yaml:"fail_submits,omitempty"`

	// Steps are the rater actions, in order.
	Steps []Step `yaml:"steps"`
}

// PoolItem seeds one item.
type PoolItem struct {
	ID    string `yaml:"id"`
	Group string `yaml:"group"`
	TextA string `yaml:"text_a"`
	TextB string `yaml:"text_b"`
	Usage int    `yaml:"usage,omitempty"`
}

// Step is one rater action. Exactly one directive must be set.
type Step struct {
	// Score judges the current item and advances.
	Score int `yaml:"score,omitempty"`

	// Back retreats one position, discarding the last judgment.
	Back bool `yaml:"back,omitempty"`

	// Confirm resolves the finish decision: true flushes and completes,
	// false retreats to the previous item.
	Confirm *bool `yaml:"confirm,omitempty"`

	// Exit stops early and flushes whatever was judged.
	Exit bool `yaml:"exit,omitempty"`

	// Continue requests a fresh batch after a terminal state.
	Continue bool `yaml:"continue,omitempty"`

	// Retry runs one delivery pass over the pending queue.
	Retry bool `yaml:"retry,omitempty"`
}

// directives counts how many actions the step sets.
func (s Step) directives() int {
	n := 0
	if s.Score != 0 {
		n++
	}
	if s.Back {
		n++
	}
	if s.Confirm != nil {
		n++
	}
	if s.Exit {
		n++
	}
	if s.Continue {
		n++
	}
	if s.Retry {
		n++
	}
	return n
}

// item converts a pool entry to the domain type.
func (p PoolItem) item() survey.Item {
	return survey.Item{
		ID:         p.ID,
		GroupKey:   p.Group,
		TextA:      p.TextA,
		TextB:      p.TextB,
		UsageCount: p.Usage,
	}
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and coherent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Rater == "" {
		return fmt.Errorf("rater is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := map[string]bool{}
	for i, p := range s.Pool {
		if p.ID == "" {
			return fmt.Errorf("pool[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("pool[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		if p.TextA == "" || p.TextB == "" {
			return fmt.Errorf("pool[%d]: both texts are required", i)
		}
	}

	for i, step := range s.Steps {
		switch step.directives() {
		case 0:
			return fmt.Errorf("steps[%d]: no action set", i)
		case 1:
		default:
			return fmt.Errorf("steps[%d]: exactly one action per step", i)
		}
		if step.Score != 0 && (step.Score < 1 || step.Score > 5) {
			return fmt.Errorf("steps[%d]: score must be 1-5", i)
		}
	}

	for i, attempt := range s.FailSubmits {
		if attempt < 1 {
			return fmt.Errorf("fail_submits[%d]: attempts are 1-based", i)
		}
	}
	return nil
}
