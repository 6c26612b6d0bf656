package google

import (
	"encoding/json"
	"strings"

	ai "github.com/zPy52/taichat"
	"google.golang.org/genai"
)

// convertMessages maps conversation history onto Gemini contents.
// System messages collapse into a single system instruction string.
func convertMessages(messages []ai.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system []string

	// Gemini correlates function responses by name, not call ID.
	callNames := make(map[string]string)

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			if msg.Content != "" {
				system = append(system, msg.Content)
			}

		case ai.RoleUser:
			if msg.Content != "" {
				contents = append(contents, &genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: msg.Content}},
				})
			}

		case ai.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				callNames[tc.ID] = tc.Name
				var args map[string]any
				json.Unmarshal([]byte(tc.Arguments), &args)
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: tc.Name,
						Args: args,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}

		case ai.RoleTool:
			var parts []*genai.Part
			for _, tr := range msg.ToolResults {
				response := map[string]any{}
				if err := json.Unmarshal([]byte(tr.Content), &response); err != nil {
					response = map[string]any{"result": tr.Content}
				}
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     callNames[tr.ToolCallID],
						Response: response,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "user", Parts: parts})
			}
		}
	}

	return contents, strings.Join(system, "\n\n")
}
