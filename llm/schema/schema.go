package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// 📐 Schema 数据模型
// =============================================================================

// Property 描述单个字段的类型约束。
// 从 JSON 解码时保留原文，编码时原样输出；结构字段只是便于读取的视图。
type Property struct {
	Type        string              `json:"type,omitempty"`
	Description string              `json:"description,omitempty"`
	Enum        []any               `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`

	raw json.RawMessage
}

// Format 是裸 JSON Schema（对象级）。
// 解码得到的 Format 携带原文，未识别的关键字（minimum、anyOf、$defs 等）随原文透传。
type Format struct {
	Type                 string              `json:"type"`
	Required             []string            `json:"required,omitempty"`
	Properties           map[string]Property `json:"properties,omitempty"`
	AdditionalProperties *bool               `json:"additionalProperties,omitempty"`

	raw json.RawMessage
}

type (
	propertyFields Property
	formatFields   Format
)

// schemaView 是解析视图时使用的宽松结构，形状不符的关键字直接忽略。
type schemaView struct {
	Type                 json.RawMessage `json:"type"`
	Description          json.RawMessage `json:"description"`
	Enum                 json.RawMessage `json:"enum"`
	Items                json.RawMessage `json:"items"`
	Properties           json.RawMessage `json:"properties"`
	Required             json.RawMessage `json:"required"`
	AdditionalProperties json.RawMessage `json:"additionalProperties"`
}

func parseView(data []byte) (schemaView, json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return schemaView{}, nil, err
	}
	var v schemaView
	if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
		return schemaView{}, nil, err
	}
	return v, json.RawMessage(buf.Bytes()), nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// typeName 取 type 关键字的主类型；联合类型取第一个非 null 成员。
func typeName(raw json.RawMessage) string {
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return single
	}
	var union []string
	if json.Unmarshal(raw, &union) != nil {
		return ""
	}
	for _, t := range union {
		if t != "null" {
			return t
		}
	}
	return ""
}

func stringsOf(raw json.RawMessage) []string {
	var out []string
	if json.Unmarshal(raw, &out) != nil {
		return nil
	}
	return out
}

func propertiesOf(raw json.RawMessage) map[string]Property {
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil || len(fields) == 0 {
		return nil
	}
	out := make(map[string]Property, len(fields))
	for name, data := range fields {
		var p Property
		if p.UnmarshalJSON(data) == nil {
			out[name] = p
		}
	}
	return out
}

// UnmarshalJSON 保留原文并宽松解析视图.
func (p *Property) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	v, raw, err := parseView(data)
	if err != nil {
		return fmt.Errorf("decode property: %w", err)
	}
	*p = Property{
		Type:       typeName(v.Type),
		Required:   stringsOf(v.Required),
		Properties: propertiesOf(v.Properties),
		raw:        raw,
	}
	_ = json.Unmarshal(v.Description, &p.Description)
	_ = json.Unmarshal(v.Enum, &p.Enum)
	if len(v.Items) > 0 {
		var items Property
		if items.UnmarshalJSON(v.Items) == nil {
			p.Items = &items
		}
	}
	return nil
}

// MarshalJSON 优先输出解码时的原文.
func (p Property) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return append([]byte(nil), p.raw...), nil
	}
	return json.Marshal(propertyFields(p))
}

// UnmarshalJSON 保留原文并宽松解析视图.
func (f *Format) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	v, raw, err := parseView(data)
	if err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	*f = Format{
		Type:       typeName(v.Type),
		Required:   stringsOf(v.Required),
		Properties: propertiesOf(v.Properties),
		raw:        raw,
	}
	var closed bool
	if json.Unmarshal(v.AdditionalProperties, &closed) == nil {
		f.AdditionalProperties = &closed
	}
	return nil
}

// MarshalJSON 优先输出解码时的原文.
func (f Format) MarshalJSON() ([]byte, error) {
	if len(f.raw) > 0 {
		return append([]byte(nil), f.raw...), nil
	}
	return json.Marshal(formatFields(f))
}

// Raw 返回解码时的原文（已去除空白）；代码构造的 Format 返回 nil.
func (f Format) Raw() json.RawMessage {
	return f.raw
}

// withType 设置顶层 type，原文同步改写.
func (f Format) withType(t string) Format {
	f.Type = t
	if len(f.raw) == 0 {
		return f
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(f.raw, &doc); err != nil {
		return f
	}
	doc["type"], _ = json.Marshal(t)
	if data, err := json.Marshal(doc); err == nil {
		f.raw = data
	}
	return f
}

// JSONSchema 是 response_format 信封中的 json_schema 部分。
type JSONSchema struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Schema      Format `json:"schema"`
	Strict      *bool  `json:"strict,omitempty"`
}

// ResponseFormat 是已包装的 response_format 信封。
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// Source 是调用方可以传入的两种 schema 形态之一：Format 或 ResponseFormat。
type Source interface {
	isSource()
}

func (Format) isSource()         {}
func (ResponseFormat) isSource() {}

// TypeJSONSchema 是信封的 type 值。
const TypeJSONSchema = "json_schema"

// =============================================================================
// 🔄 信封转换
// =============================================================================

// Decode 解析调用方提供的 schema 文本。
// 顶层含 json_schema 键时视为信封，否则视为裸 schema。
func Decode(data []byte) (Source, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	if _, wrapped := top[TypeJSONSchema]; wrapped {
		var rf ResponseFormat
		if err := json.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("decode response format: %w", err)
		}
		if rf.JSONSchema == nil {
			return nil, fmt.Errorf("decode response format: json_schema is null")
		}
		return rf, nil
	}

	var f Format
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return f, nil
}

// Bare 返回裸 schema；信封会被解包。
func Bare(src Source) Format {
	switch s := src.(type) {
	case Format:
		return s
	case *Format:
		if s != nil {
			return *s
		}
	case ResponseFormat:
		if s.JSONSchema != nil {
			return s.JSONSchema.Schema
		}
	case *ResponseFormat:
		if s != nil && s.JSONSchema != nil {
			return s.JSONSchema.Schema
		}
	}
	return Format{Type: "object"}
}

// Envelope 返回 response_format 信封；裸 schema 会被包装，已包装的原样返回。
func Envelope(src Source) ResponseFormat {
	switch s := src.(type) {
	case ResponseFormat:
		return s
	case *ResponseFormat:
		if s != nil {
			return *s
		}
	}
	return Wrap(Bare(src))
}

// Wrap 用默认名称把裸 schema 包装成信封。
func Wrap(f Format) ResponseFormat {
	return ResponseFormat{
		Type: TypeJSONSchema,
		JSONSchema: &JSONSchema{
			Name:   AnswerToolName,
			Schema: f,
		},
	}
}
