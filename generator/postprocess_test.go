package generator

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fences and trailing semicolon",
			in:   "```mermaid\ngraph TD\nA-->B;\n```",
			want: "graph TD\nA-->B",
		},
		{
			name: "mindmap drops classDef",
			in:   "mindmap\nroot\n  classDef foo fill:#000\n  child1",
			want: "mindmap\nroot\n  child1",
		},
		{
			name: "mindmap drops style lines",
			in:   "mindmap\n  root((Plan))\n    style root fill:#f00\n    Goals\n  classDef x stroke:#fff",
			want: "mindmap\n  root((Plan))\n    Goals",
		},
		{
			name: "flowchart keeps styling",
			in:   "graph LR\nA-->B\nclassDef hot fill:#f96;\nstyle A stroke:#333",
			want: "graph LR\nA-->B\nclassDef hot fill:#f96\nstyle A stroke:#333",
		},
		{
			name: "plain fence without language",
			in:   "  ```\nsequenceDiagram\nA->>B: hi;\n```  ",
			want: "sequenceDiagram\nA->>B: hi",
		},
		{
			name: "crlf and repeated semicolons",
			in:   "graph TD\r\nA-->B;; \r\nB-->C ;\r\n",
			want: "graph TD\nA-->B\nB-->C",
		},
		{
			name: "inner semicolons survive",
			in:   "graph TD\nA[\"x; y\"]-->B",
			want: "graph TD\nA[\"x; y\"]-->B",
		},
		{
			name: "blank lines survive",
			in:   "graph TD\nA-->B;\n\nB-->C",
			want: "graph TD\nA-->B\n\nB-->C",
		},
		{
			name: "empty",
			in:   "   ",
			want: "",
		},
		{
			name: "only fences",
			in:   "```mermaid\n```",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Sanitize(tt.in)); diff != "" {
				t.Fatalf("Sanitize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"```mermaid\ngraph TD\nA-->B;\n```",
		"mindmap\nroot\n  classDef foo fill:#000\n  child1",
		"mindmap\nroot\n   \n  style a fill:#fff",
		"graph TD\nA-->B\n;",
		"```mer```mermaidmaid\ngraph TD",
		"`````mermaid\ngraph TD;;;\n``",
		"; ;\n;",
		"mindmap;\n  style x\n  a;",
		"\n\n graph TD\nA --> B ; \n\n",
		";; graph TD\r```\n\rmermaid",
		"\n;\r;\t\n`;",
		"graph TD\r```mermaid\nA;\r```\n",
		"a;\v;",
		"mindmap\n  root;\f\n  style x",
		"",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Fatalf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSanitizeIdempotentGenerated(t *testing.T) {
	atoms := []string{"```", "mermaid", ";", "\r", "\n", "\t", " ", "\v", "mindmap", "style", "classDef", "graph TD", "A-->B", "`"}
	rng := rand.New(rand.NewPCG(6841, 2024))
	for i := 0; i < 20000; i++ {
		var sb strings.Builder
		for n := rng.IntN(12); n >= 0; n-- {
			sb.WriteString(atoms[rng.IntN(len(atoms))])
		}
		in := sb.String()
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Fatalf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.Contains(once, "\r") || strings.Contains(once, "```") {
			t.Fatalf("Sanitize(%q) = %q still has a carriage return or fence", in, once)
		}
	}
}

func TestSanitizeFoldsStrayCarriageReturns(t *testing.T) {
	if got := Sanitize(";; graph TD\r```\n\rmermaid"); got != ";; graph TD\n\nmermaid" {
		t.Fatalf("Sanitize = %q", got)
	}
}

func TestParseResult(t *testing.T) {
	got, err := ParseResult("```json\n{\"code\":\"graph TD\\nA-->B\",\"explanation\":\"ok\"}\n```")
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	want := DiagramResult{Markup: "graph TD\nA-->B", Explanation: "ok"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResultErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind ErrorKind
	}{
		{"empty", "  ", KindTransient},
		{"truncated", `{"code":"graph`, KindTransient},
		{"garbage", `not json at all`, KindMalformed},
		{"missing code", `{"explanation":"x"}`, KindMalformed},
		{"blank code", `{"code":"   ","explanation":"x"}`, KindMalformed},
		{"wrong type", `{"code":42}`, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Classify(err); got != tt.kind {
				t.Fatalf("Classify = %v, want %v (err %v)", got, tt.kind, err)
			}
		})
	}

	if _, err := ParseResult(""); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("empty input error = %v", err)
	}
}
