package analyzer

import (
	"fmt"
	"strings"
)

const fence = "```"

// outputFormat is the worked example embedded in every prompt. Models copy
// shapes far more reliably than they follow prose descriptions.
const outputFormat = `{
  "score": 85,
  "issues": [
    {
      "line": 10,
      "severity": "error",
      "message": "description of the problem",
      "type": "Security",
      "suggestion": "how to fix it"
    }
  ],
  "metrics": {
    "complexity": "Low",
    "maintainability": "Good",
    "security": "Good",
    "performance": "Good"
  },
  "summary": "One to three sentences describing the overall quality.",
  "analysisTime": 0
}`

// buildPrompt assembles the analysis instruction for the model: what to
// look for, the code under review, and the exact JSON shape to reply with.
func buildPrompt(req Request) string {
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "code"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert code reviewer. Analyze the following %s for bugs, security vulnerabilities, performance problems and maintainability concerns.\n\n", lang)
	b.WriteString("CODE TO ANALYZE:\n")
	fmt.Fprintf(&b, "%s%s\n%s\n%s\n\n", fence, lang, req.Code, fence)
	b.WriteString("REQUIRED OUTPUT FORMAT:\n")
	b.WriteString(outputFormat)
	b.WriteString("\n\n")
	b.WriteString("Score from 0 (unusable) to 100 (excellent). ")
	b.WriteString(`Severity must be one of "error", "warning" or "info", ordered by how urgent the finding is. `)
	b.WriteString("Use line 0 when no specific line applies, and omit column and suggestion when you have nothing useful to say. ")
	b.WriteString("List issues in the order you discover them.\n\n")
	b.WriteString("Respond with ONLY the JSON object, no markdown fences and no other text.")
	return b.String()
}
