package schema

// AnswerToolName 是结构化答案专用的工具名。
const AnswerToolName = "provide_answer"

// AnswerToolDescription 要求模型必须通过该工具作答。
const AnswerToolDescription = "Provide the final answer by calling this tool. " +
	"You must call provide_answer exactly once with arguments that match the parameters schema. " +
	"Do not answer in plain text."

// Tool 是可调用工具的定义（与传输层无关）。
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Format `json:"parameters"`
}

// AnswerTool 为裸 schema 合成结构化答案工具。
func AnswerTool(f Format) Tool {
	if f.Type == "" {
		f = f.withType("object")
	}
	return Tool{
		Name:        AnswerToolName,
		Description: AnswerToolDescription,
		Parameters:  f,
	}
}
