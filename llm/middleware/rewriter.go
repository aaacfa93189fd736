package middleware

import (
	"context"
	"fmt"

	llmpkg "github.com/BaSui01/jsoninference/llm"
)

// RequestRewriter 在请求交给后端之前整形消息序列，可以原地修改 req
type RequestRewriter interface {
	Rewrite(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error)
	Name() string
}

// RewriterChain 依次执行的改写器；nil 链只做复制
type RewriterChain struct {
	rewriters []RequestRewriter
}

func NewRewriterChain(rewriters ...RequestRewriter) *RewriterChain {
	return &RewriterChain{rewriters: rewriters}
}

// Execute 在请求副本上运行全部改写器，调用方的消息切片保持不变
func (c *RewriterChain) Execute(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil {
		return nil, nil
	}

	out := &llmpkg.ChatRequest{}
	*out = *req
	out.Messages = CloneMessages(req.Messages)
	out.Tools = append([]llmpkg.ToolSchema(nil), req.Tools...)
	if c == nil {
		return out, nil
	}

	for _, rw := range c.rewriters {
		next, err := rw.Rewrite(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", rw.Name(), err)
		}
		out = next
	}
	return out, nil
}

func (c *RewriterChain) AddRewriter(rw RequestRewriter) {
	c.rewriters = append(c.rewriters, rw)
}

// GetRewriters 返回当前改写器顺序
func (c *RewriterChain) GetRewriters() []RequestRewriter {
	return c.rewriters
}

// CloneMessages 深复制消息列表（包括 ToolCalls 切片）
func CloneMessages(messages []llmpkg.Message) []llmpkg.Message {
	if messages == nil {
		return nil
	}
	out := make([]llmpkg.Message, len(messages))
	for i, m := range messages {
		out[i] = m
		if m.ToolCalls != nil {
			out[i].ToolCalls = append([]llmpkg.ToolCall(nil), m.ToolCalls...)
		}
	}
	return out
}
