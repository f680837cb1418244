package generator

import "strings"

// Prompt 表示发送给 LLM 的一次请求内容。
type Prompt struct {
	System string
	User   string
	// Schema is the JSON schema the response must follow. When nil the
	// model is free to answer in plain text.
	Schema map[string]any
	// SchemaName labels the schema for providers that require a name.
	SchemaName string
}

const systemInstruction = `
You are ChartMaster AI, an expert in writing Mermaid.js diagram code.

Follow these rules strictly.

1. Flowcharts (graph)
   - Start with 'graph TD' or 'graph LR'.
   - Node IDs are alphanumeric only (A, B, Node1). No Chinese or special characters in IDs.
   - Always wrap node labels in double quotes: A["Text content"] --> B["Action (Detail)"].
   - Quotes are mandatory when a label contains '(', ')', '[' or ']'.

2. Mindmaps
   - Start with 'mindmap', root node on the next line.
   - Indent strictly with 2 spaces.
   - Never use 'classDef', 'style' or '-->'.
   - Never use ()[]{} in text unless quoted.

3. General formatting
   - One statement per line.
   - No semicolons at the end of lines.
   - No Markdown code fences.
   - Do not append style commands to node definitions.

4. Styling
   - Use classDef only for flowcharts and graphs.
   - Prefer dark-mode friendly colors (slate, blue, teal).

5. Output
   - Return strictly valid JSON with the fields "code" and "explanation".
`

// diagramSchema describes the {code, explanation} object the model must return.
func diagramSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "The raw Mermaid.js diagram code, one statement per line, no Markdown.",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "A brief explanation of the diagram.",
			},
		},
		"required":             []string{"code", "explanation"},
		"additionalProperties": false,
	}
}

// BuildDiagramPrompt wraps the user's description with the fixed system
// instruction and the diagram response schema.
func BuildDiagramPrompt(description string) Prompt {
	return Prompt{
		System:     strings.TrimSpace(systemInstruction),
		User:       description,
		Schema:     diagramSchema(),
		SchemaName: "diagram",
	}
}
