package middleware

import (
	"context"
	"strings"

	llmpkg "github.com/BaSui01/jsoninference/llm"
)

// =============================================================================
// 🧹 消息整形改写器
// =============================================================================

// SystemPromptFolder 把所有 system 消息按换行拼接为一条前置 system 消息。
// 拼接结果为空时不生成 system 消息。
type SystemPromptFolder struct{}

func (r *SystemPromptFolder) Name() string { return "system_prompt_folder" }

func (r *SystemPromptFolder) Rewrite(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil {
		return req, nil
	}
	req.Messages = FoldSystemPrompts(req.Messages)
	return req, nil
}

// FoldSystemPrompts 返回新列表：折叠后的 system 消息在首位，其余消息保持顺序。
func FoldSystemPrompts(messages []llmpkg.Message) []llmpkg.Message {
	var prompts []string
	rest := make([]llmpkg.Message, 0, len(messages)+1)
	for _, m := range messages {
		if m.Role == llmpkg.RoleSystem {
			if m.Content != "" {
				prompts = append(prompts, m.Content)
			}
			continue
		}
		rest = append(rest, m)
	}

	system := strings.Join(prompts, "\n")
	if system == "" {
		return rest
	}
	return append([]llmpkg.Message{{Role: llmpkg.RoleSystem, Content: system}}, rest...)
}

// RoleFilter 只保留允许的角色。
type RoleFilter struct {
	Allowed []llmpkg.Role
}

func (r *RoleFilter) Name() string { return "role_filter" }

func (r *RoleFilter) Rewrite(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil || len(r.Allowed) == 0 {
		return req, nil
	}
	kept := make([]llmpkg.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if containsRole(r.Allowed, m.Role) {
			kept = append(kept, m)
		}
	}
	req.Messages = kept
	return req, nil
}

// ConsecutiveMerger 合并相邻同角色消息（仅限 Roles 中的角色）。
type ConsecutiveMerger struct {
	Roles []llmpkg.Role
}

func (r *ConsecutiveMerger) Name() string { return "consecutive_merger" }

func (r *ConsecutiveMerger) Rewrite(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil {
		return req, nil
	}
	req.Messages = MergeConsecutive(req.Messages, r.Roles...)
	return req, nil
}

// MergeConsecutive 从尾部向前扫描，把后一条合并进前一条（内容按换行拼接，
// ToolCalls 拼接），直到不存在相邻同角色对。返回新列表，不修改输入。
func MergeConsecutive(messages []llmpkg.Message, roles ...llmpkg.Role) []llmpkg.Message {
	out := CloneMessages(messages)
	if len(roles) == 0 {
		return out
	}

	for changed := true; changed; {
		changed = false
		for i := len(out) - 1; i > 0; i-- {
			prev, cur := out[i-1], out[i]
			if prev.Role != cur.Role || !containsRole(roles, cur.Role) {
				continue
			}
			out[i-1] = mergePair(prev, cur)
			out = append(out[:i], out[i+1:]...)
			changed = true
		}
	}
	return out
}

func mergePair(earlier, later llmpkg.Message) llmpkg.Message {
	merged := earlier
	merged.Content = joinNonEmpty(earlier.Content, later.Content)
	if len(later.ToolCalls) > 0 {
		calls := make([]llmpkg.ToolCall, 0, len(earlier.ToolCalls)+len(later.ToolCalls))
		calls = append(calls, earlier.ToolCalls...)
		calls = append(calls, later.ToolCalls...)
		merged.ToolCalls = calls
	}
	return merged
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}

func containsRole(roles []llmpkg.Role, role llmpkg.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// =============================================================================
// 🎛️ 后端能力
// =============================================================================

// Capabilities 描述后端对消息形态的要求。
// 支持工具调用的后端不应设置 MergeAssistant：合并会打乱 tool call 与响应的配对。
type Capabilities struct {
	FoldSystem     bool
	AllowedRoles   []llmpkg.Role
	MergeUser      bool
	MergeAssistant bool
}

// Chain 按能力构建改写器链：折叠 system、过滤角色、合并相邻消息，最后校正 tool_choice。
func (c Capabilities) Chain() *RewriterChain {
	chain := NewRewriterChain()
	if c.FoldSystem {
		chain.AddRewriter(&SystemPromptFolder{})
	}
	if len(c.AllowedRoles) > 0 {
		chain.AddRewriter(&RoleFilter{Allowed: c.AllowedRoles})
	}

	var roles []llmpkg.Role
	if c.MergeAssistant {
		roles = append(roles, llmpkg.RoleAssistant)
	}
	if c.MergeUser {
		roles = append(roles, llmpkg.RoleUser)
	}
	if len(roles) > 0 {
		chain.AddRewriter(&ConsecutiveMerger{Roles: roles})
	}

	chain.AddRewriter(ToolChoiceGuard{})
	return chain
}
