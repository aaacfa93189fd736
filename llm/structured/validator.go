package structured

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BaSui01/jsoninference/llm/schema"
)

// ErrEmptyArguments 表示工具调用参数为空而 schema 声明了必填字段。
var ErrEmptyArguments = errors.New("tool call has empty arguments")

// ParseError represents a parse or validation error with field path.
type ParseError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// MissingFieldsError 列出全部缺失的必填字段。
type MissingFieldsError struct {
	Missing []string `json:"missing"`
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// ValidateRequired 只做结构校验：必填键是否存在，不校验字段类型与枚举。
// 值为 null 时：没有必填字段则以空对象代替，否则返回 ErrEmptyArguments。
func ValidateRequired(v any, required []string) (any, error) {
	if v == nil {
		if len(required) == 0 {
			return map[string]any{}, nil
		}
		return nil, ErrEmptyArguments
	}

	obj, _ := v.(map[string]any)
	var missing []string
	for _, field := range required {
		if _, ok := obj[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Missing: missing}
	}
	return v, nil
}

// RepairAndValidate 依次执行修复、解析与必填字段校验。
func RepairAndValidate(raw string, f schema.Format) (any, error) {
	v, err := Parse(Repair(raw))
	if err != nil {
		return nil, err
	}
	return ValidateRequired(v, f.Required)
}
