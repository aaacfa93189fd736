package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	llmpkg "github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/schema"
)

// KeyPrefix 是所有缓存键的公共前缀
const KeyPrefix = "jsoninfer:cache:"

// Request 是参与缓存键计算的调用要素；凭据不参与
type Request struct {
	Backend  llmpkg.InferenceName `json:"backend"`
	Model    string               `json:"model"`
	Format   schema.Format        `json:"format"`
	Messages []llmpkg.Message     `json:"messages"`
}

// NewRequest 从一次调用构造缓存请求，schema 统一为裸形态
func NewRequest(params llmpkg.OutlineParams, exec llmpkg.Execution) Request {
	return Request{
		Backend:  exec.Backend,
		Model:    exec.Model,
		Format:   schema.Bare(params.Format),
		Messages: params.Messages,
	}
}

// KeyStrategy 缓存键生成策略接口
type KeyStrategy interface {
	// GenerateKey 生成缓存键
	GenerateKey(req Request) string

	// Name 返回策略名称（用于日志和调试）
	Name() string
}

func digest(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// fallback: 使用 fmt.Sprintf 生成确定性字符串避免 key 碰撞
		data = []byte(fmt.Sprintf("%v", v))
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashKeyStrategy 使用全请求 Hash 生成扁平缓存键
type HashKeyStrategy struct{}

// NewHashKeyStrategy 创建 Hash 策略
func NewHashKeyStrategy() *HashKeyStrategy { return &HashKeyStrategy{} }

func (s *HashKeyStrategy) Name() string { return "hash" }

func (s *HashKeyStrategy) GenerateKey(req Request) string {
	return KeyPrefix + digest(req)
}

// HierarchicalKeyStrategy 生成 backend:model:hash 形式的分层键，
// 便于按后端整体失效
type HierarchicalKeyStrategy struct{}

// NewHierarchicalKeyStrategy 创建分层策略
func NewHierarchicalKeyStrategy() *HierarchicalKeyStrategy { return &HierarchicalKeyStrategy{} }

func (s *HierarchicalKeyStrategy) Name() string { return "hierarchical" }

func (s *HierarchicalKeyStrategy) GenerateKey(req Request) string {
	model := req.Model
	if model == "" {
		model = "default"
	}
	return fmt.Sprintf("%s%s:%s:%s", KeyPrefix, req.Backend, model, digest(struct {
		Format   schema.Format    `json:"format"`
		Messages []llmpkg.Message `json:"messages"`
	}{req.Format, req.Messages}))
}

// BackendPattern 返回某后端全部分层键的匹配模式
func BackendPattern(backend llmpkg.InferenceName) string {
	return KeyPrefix + string(backend) + ":*"
}
