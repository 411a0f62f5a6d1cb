package composer

import "strings"

// 内置默认指令集
//
// 当项目没有任何可装配的提示卡时（全部未激活或内容为空），
// 装配器回退到这组内置指令，保证生成流程可以继续，而不是报错。
var defaultGuidelines = []string{
	"你是一位资深的新媒体标题编辑，擅长为文章撰写吸引读者的标题。",

	"标题要求：\n" +
		"- 准确概括文章核心内容，不夸大、不歪曲\n" +
		"- 控制在 10-30 个字之间\n" +
		"- 避免标题党式的夸张用语\n" +
		"- 语言简洁有力，突出文章最有价值的信息点",

	"输出格式：每行一个候选标题，共给出 3-5 个候选，不要编号，不要附加解释。",
}

// DefaultSystemPrompt 返回内置默认指令集拼接成的系统提示词
func DefaultSystemPrompt() string {
	return strings.Join(defaultGuidelines, "\n\n")
}
