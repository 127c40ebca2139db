package summarize

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/trae-mem/internal/redact"
)

const promptTemplate = `你是一个“会话记忆压缩器”。请把下面的会话日志压缩成可注入到下次会话的上下文，要求：
1) 使用中文；2) 只输出要点；3) 不要包含任何 <private> 内容；4) 总长度尽量不超过 %d 字符。

输出格式：
- 用户目标：
- 已完成：
- 未解决/风险：
- 下一步建议：

会话日志：
%s`

// BuildPrompt renders the provider prompt for entries. Private spans are
// removed and entries left empty are skipped.
func BuildPrompt(entries []Entry, budget int) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		c := redact.Strip(e.Content)
		if c == "" {
			continue
		}
		label := e.Kind
		if e.ToolName != "" {
			label += "/" + e.ToolName
		}
		blocks = append(blocks, fmt.Sprintf("[%d] %s\n%s", e.TS, label, c))
	}
	return fmt.Sprintf(promptTemplate, budget, strings.Join(blocks, "\n\n"))
}
