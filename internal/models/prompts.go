package models

const (
	// ThinkTag strips reasoning blocks some chat models emit before the answer
	ThinkTag = `(?s)<think>.*?</think>`

	// NoMaterialAnswer is returned when no fragment clears the score threshold
	NoMaterialAnswer = "未在课程资料中找到与该问题相关的内容。"
)

var (
	// RefinePromptTemplate asks the model to trim each numbered fragment to a
	// semantically complete excerpt without rewording, merging contiguous ones.
	// The response must keep one line per input ordinal so it can be parsed
	// back positionally.
	RefinePromptTemplate = `以下是从课程资料中检索到的 %d 个编号片段，它们将用于回答问题：%s

【片段】
%s

请对每个片段做如下处理：
1. 在不改写、不增删原文措辞的前提下，截取语义完整的部分，去掉首尾被切断的残句；
2. 若相邻编号的片段内容前后相连，可将它们合并后写在靠前的编号下，其余编号仍需输出该编号截取后的内容；
3. 严格按照"编号. 内容"的格式输出，每个编号独占一行开头，不要输出任何其他说明。
`

	// AnswerPromptTemplate asks the model to answer strictly from the refined
	// fragments and tag each claim with the originating fragment ordinal.
	AnswerPromptTemplate = `你是一名课程答疑助手。已知课程资料如下：

%s

请严格根据上述编号资料回答问题，不要使用资料之外的知识。每个论断后用方括号标注其来源片段编号，例如 [1]。若资料不足以回答，请直接说明。

问题：%s
`

	// DegradedAnswerTemplate replaces the answer when the chat model call
	// fails; the retrieved fragments are still returned as sources.
	DegradedAnswerTemplate = "生成回答时调用语言模型失败：%v。以下为检索到的相关课程资料片段，请直接查阅来源。"
)
