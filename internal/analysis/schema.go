package analysis

import "google.golang.org/genai"

// findingsSchema describes the review phase's structured output: an array of
// findings with an alternating text/code explanation sequence. Enforced at
// decode time by the Gemini backend; advisory for the others.
func findingsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"fileName": {
					Type:        genai.TypeString,
					Description: "Path of the affected file",
				},
				"severity": {
					Type: genai.TypeString,
					Enum: []string{"Critical", "High", "Medium", "Low"},
				},
				"finding": {
					Type:        genai.TypeString,
					Description: "Short title for the issue",
				},
				"explanation": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"type": {
								Type: genai.TypeString,
								Enum: []string{"text", "code"},
							},
							"content": {
								Type: genai.TypeString,
							},
						},
						Required: []string{"type", "content"},
					},
				},
				"startLine": {Type: genai.TypeInteger},
				"endLine":   {Type: genai.TypeInteger},
			},
			Required: []string{"fileName", "severity", "finding", "explanation"},
		},
	}
}
