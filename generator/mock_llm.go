package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockLLM answers locally without calling a model, for offline development.
// It echoes the prompt into a two-node flowchart.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	label := strings.Join(strings.Fields(prompt.User), " ")
	label = strings.ReplaceAll(label, `"`, "'")
	if r := []rune(label); len(r) > 60 {
		label = string(r[:60]) + "..."
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "  A[\"%s\"] --> B[\"Diagram\"]\n", label)
	sb.WriteString("  classDef node fill:#1e293b,stroke:#38bdf8,color:#e2e8f0\n")

	out, err := json.Marshal(DiagramResult{
		Markup:      sb.String(),
		Explanation: "Offline mock response: the description rendered as a single step.",
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
