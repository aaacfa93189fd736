package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/jsoninference/api"
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/factory"
	"github.com/BaSui01/jsoninference/llm/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// 🧩 结构化输出 Handler
// =============================================================================

// KeyHeader 携带一个或多个（逗号分隔）后端 API Key.
const KeyHeader = "X-Inference-Key"

// Dispatcher 是结构化输出的上行调用面（*llm.Registry 实现）.
type Dispatcher interface {
	Dispatch(ctx context.Context, name llm.InferenceName, params llm.OutlineParams, model string, credentials ...string) (*llm.Result, error)
	Names() []llm.InferenceName
}

// GenerateHandler 处理 /v1/generate 与 /v1/backends
type GenerateHandler struct {
	dispatcher   Dispatcher
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewGenerateHandler 创建处理器；maxBodyBytes <= 0 表示不限制
func NewGenerateHandler(dispatcher Dispatcher, maxBodyBytes int64, logger *zap.Logger) *GenerateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateHandler{
		dispatcher:   dispatcher,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With(zap.String("component", "generate_handler")),
	}
}

// HandleGenerate 处理结构化输出请求
// @Summary 结构化输出
// @Description 从指定后端获取满足 JSON Schema 的 JSON 文档
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body api.GenerateRequest true "结构化输出请求"
// @Success 200 {object} api.GenerateResponse "结构化结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 404 {object} Response "未知后端"
// @Failure 422 {object} Response "模型拒答"
// @Failure 502 {object} Response "上游失败或尝试次数用尽"
// @Router /v1/generate [post]
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.GenerateRequest
	if err := DecodeJSONBody(w, r, &req, h.maxBodyBytes, h.logger); err != nil {
		return
	}

	name, params, timeout, err := h.validate(&req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	start := time.Now()
	res, err := h.dispatcher.Dispatch(ctx, name, params, req.Model, credentials(r)...)
	duration := time.Since(start)
	if err != nil {
		h.logger.Info("generate failed",
			zap.String("request_id", requestID),
			zap.String("backend", name.String()),
			zap.Duration("duration", duration),
			zap.Error(err))
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("generate",
		zap.String("request_id", requestID),
		zap.String("backend", name.String()),
		zap.String("model", req.Model),
		zap.Int("bytes", len(res.Content)),
		zap.Duration("duration", duration),
	)

	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Data: api.GenerateResponse{
			Backend: name.String(),
			Model:   req.Model,
			Role:    res.Role,
			Content: json.RawMessage(res.Content),
		},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// HandleBackends 列出已注册后端
// @Summary 后端列表
// @Tags 生成
// @Produce json
// @Success 200 {array} api.BackendInfo "后端"
// @Router /v1/backends [get]
func (h *GenerateHandler) HandleBackends(w http.ResponseWriter, r *http.Request) {
	names := h.dispatcher.Names()
	out := make([]api.BackendInfo, 0, len(names))
	for _, n := range names {
		out = append(out, api.BackendInfo{Name: n.String()})
	}
	WriteSuccess(w, out)
}

func (h *GenerateHandler) validate(req *api.GenerateRequest) (llm.InferenceName, llm.OutlineParams, time.Duration, error) {
	var params llm.OutlineParams

	name, err := factory.ParseName(req.Backend)
	if err != nil {
		return "", params, 0, err
	}
	if len(req.Messages) == 0 {
		return "", params, 0, llm.NewError(llm.ErrInvalidRequest, "messages must not be empty")
	}
	if len(req.Format) == 0 || string(req.Format) == "null" {
		return "", params, 0, llm.NewError(llm.ErrInvalidRequest, "format is required")
	}
	src, err := schema.Decode(req.Format)
	if err != nil {
		return "", params, 0, llm.NewError(llm.ErrInvalidRequest, err.Error()).WithCause(err)
	}

	var timeout time.Duration
	if req.Timeout != "" {
		timeout, err = time.ParseDuration(req.Timeout)
		if err != nil || timeout < 0 {
			return "", params, 0, llm.NewError(llm.ErrInvalidRequest, "invalid timeout "+req.Timeout)
		}
	}

	params = llm.OutlineParams{Format: src, Messages: req.Messages}
	return name, params, timeout, nil
}

// credentials 从请求头读取后端 API Key；X-Inference-Key 优先于 Bearer
func credentials(r *http.Request) []string {
	var keys []string
	for _, v := range r.Header.Values(KeyHeader) {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	if len(keys) > 0 {
		return keys
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if k := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); k != "" {
			return []string{k}
		}
	}
	return nil
}
