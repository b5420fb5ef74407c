package inference

import (
	"fmt"
	"strings"
)

// 创建 item 时按分类选择的指令
const (
	ContextSalesLead = "Generate a sales lead qualification checklist."
	ContextTaskPlan  = "Create a brief execution plan for this software task."
)

// MissingKeyMessage 未配置凭证时返回给用户的说明
const MissingKeyMessage = "AI unavailable: no Hugging Face API key is configured (set HUGGINGFACE_API_KEY)."

const salesLeadMarker = "sales lead"

var salesFallbackLines = []string{
	"1. Confirm the lead's budget and buying timeline.",
	"2. Identify the decision makers and key stakeholders.",
	"3. Clarify the business problem the lead needs solved.",
	"4. Send a tailored proposal with pricing options.",
	"5. Schedule a follow-up call to agree on next steps.",
}

const genericFallbackFormat = "1. Define the goal and scope of: %s\n" +
	"2. Break the work into small, reviewable steps.\n" +
	"3. Implement the steps in priority order.\n" +
	"4. Test the result and fix any issues found.\n" +
	"5. Review with stakeholders and mark the task done."

// SalesFallback 销售线索的离线清单
func SalesFallback() string {
	return strings.Join(salesFallbackLines, "\n")
}

// GenericFallback 通用的五步计划，prompt 填入第一步
func GenericFallback(prompt string) string {
	return fmt.Sprintf(genericFallbackFormat, prompt)
}

// Fallback 按 instruction 选择离线模板
func Fallback(prompt, instruction string) string {
	if strings.Contains(instruction, salesLeadMarker) {
		return SalesFallback()
	}
	return GenericFallback(prompt)
}

// BuildPrompt 拼接 Mistral instruct 格式的完整提示词
func BuildPrompt(prompt, instruction string) string {
	return "<s>[INST] You are an expert business automation AI.\n" +
		"Context: " + instruction + "\n" +
		"Task: " + prompt + "\n\n" +
		"Keep the answer professional, concise, and formatted with bullet points if needed. [/INST]"
}
