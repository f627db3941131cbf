package client

import (
	"fmt"

	"google.golang.org/genai"

	"leo/internal/agent"
)

// splitSystem separates system messages from the rest. Backends take
// the system prompt out of band, so it never appears in the contents.
func splitSystem(messages []agent.Message) (system string, rest []agent.Message) {
	for _, m := range messages {
		if m.Role == agent.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// toGenaiContents maps conversation messages onto genai contents.
// Tool results become functionResponse parts named by their call id;
// assistant tool requests become functionCall parts.
func toGenaiContents(messages []agent.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case agent.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))

		case agent.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   call.ID,
						Name: call.Name,
						Args: call.Args,
					},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, genai.NewPartFromText(" "))
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})

		case agent.RoleTool:
			name := m.ToolCallID
			if name == "" {
				name = "unknown"
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       m.ToolCallID,
						Name:     name,
						Response: map[string]any{"result": m.Content},
					},
				}},
			})
		}
	}
	return contents
}

// parseGenaiResponse extracts text and tool calls out of an SDK
// response. Calls without an id get synthesized tc_<index> ids so tool
// results can be linked back.
func parseGenaiResponse(resp *genai.GenerateContentResponse) (*agent.Response, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("response contains no candidates")
	}
	candidate := resp.Candidates[0]

	out := &agent.Response{FinishReason: "stop"}
	if candidate.FinishReason != "" {
		out.FinishReason = string(candidate.FinishReason)
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.Content += part.Text
			}
			if part.FunctionCall != nil {
				id := part.FunctionCall.ID
				if id == "" {
					id = fmt.Sprintf("tc_%d", len(out.ToolCalls))
				}
				out.ToolCalls = append(out.ToolCalls, agent.ToolCallRequest{
					ID:   id,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				})
			}
		}
	}

	if resp.UsageMetadata != nil {
		out.Usage = &agent.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return out, nil
}
