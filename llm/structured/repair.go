package structured

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Repair 对近似 JSON 的文本做尽力修复（尾逗号、未加引号的键、截断字符串等）。
// 从不返回错误：无法修复时原样返回。已合法的 JSON 不做任何改动。
func Repair(raw string) string {
	if json.Valid([]byte(raw)) {
		return raw
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return raw
	}
	return repaired
}

// Parse 解析 JSON 文本；数字保留为 json.Number，尾随内容视为错误。
func Parse(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Path: "$", Message: "invalid JSON: unexpected trailing data"}
	}
	return v, nil
}

// Encode 把值编码为紧凑 JSON 文本（不转义 HTML 字符）。
func Encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Annotate 把旁路字段附加到对象结果上；非对象结果原样返回。
func Annotate(v any, fields map[string]any) any {
	obj, ok := v.(map[string]any)
	if !ok || len(fields) == 0 {
		return v
	}
	out := make(map[string]any, len(obj)+len(fields))
	for k, val := range obj {
		out[k] = val
	}
	for k, val := range fields {
		out[k] = val
	}
	return out
}
