package middleware

import (
	"context"

	llmpkg "github.com/BaSui01/jsoninference/llm"
)

// ToolChoiceGuard 保证 tool_choice 指向真实存在的工具。
// 工具列表为空时清除 tool_choice；指名的工具不在列表中时回退为 required。
type ToolChoiceGuard struct{}

func (ToolChoiceGuard) Name() string { return "tool_choice_guard" }

func (ToolChoiceGuard) Rewrite(_ context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil {
		return nil, nil
	}
	if len(req.Tools) == 0 {
		req.Tools = nil
		req.ToolChoice = ""
		return req, nil
	}

	switch req.ToolChoice {
	case "", "auto", "none", "required":
		return req, nil
	}
	for _, t := range req.Tools {
		if t.Name == req.ToolChoice {
			return req, nil
		}
	}
	req.ToolChoice = "required"
	return req, nil
}
