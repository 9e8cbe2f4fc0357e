package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRefinedWellFormed(t *testing.T) {
	parsed, confident := parseRefined("1. 第一段内容\n2. 第二段内容\n3. 第三段内容", 3)
	assert.True(t, confident)
	assert.Equal(t, "第一段内容", parsed[1])
	assert.Equal(t, "第二段内容", parsed[2])
	assert.Equal(t, "第三段内容", parsed[3])
}

func TestParseRefinedContinuationLines(t *testing.T) {
	response := "1. 第一行\n仍属于第一段\n2. 第二段"
	parsed, confident := parseRefined(response, 2)
	assert.True(t, confident)
	assert.Equal(t, "第一行\n仍属于第一段", parsed[1])
	assert.Equal(t, "第二段", parsed[2])
}

func TestParseRefinedChinesePunctuation(t *testing.T) {
	parsed, confident := parseRefined("1、甲\n2：乙\n3） 丙", 3)
	assert.True(t, confident)
	assert.Equal(t, "甲", parsed[1])
	assert.Equal(t, "乙", parsed[2])
	assert.Equal(t, "丙", parsed[3])
}

func TestParseRefinedOutOfRangeOrdinalIsContinuation(t *testing.T) {
	// "5." exceeds n, so the line continues fragment 1 instead of opening a new one
	parsed, confident := parseRefined("1. 开头\n5. 不存在的编号", 1)
	assert.True(t, confident)
	assert.Equal(t, "开头\n5. 不存在的编号", parsed[1])
}

func TestParseRefinedMissingOrdinalNotConfident(t *testing.T) {
	parsed, confident := parseRefined("1. 只有第一段\n3. 跳过了第二段", 3)
	assert.False(t, confident)
	assert.Equal(t, "只有第一段", parsed[1])
	assert.Equal(t, "跳过了第二段", parsed[3])
	assert.Empty(t, parsed[2])
}

func TestParseRefinedBlankEntryNotConfident(t *testing.T) {
	_, confident := parseRefined("1. \n2. 有内容", 2)
	assert.False(t, confident)
}

func TestParseRefinedProseOnly(t *testing.T) {
	parsed, confident := parseRefined("这些片段都与问题相关。", 2)
	assert.False(t, confident)
	assert.Empty(t, parsed)
}

func TestStripThink(t *testing.T) {
	assert.Equal(t, "最终答案", stripThink("<think>让我想想\n多行推理</think>最终答案"))
	assert.Equal(t, "无推理块", stripThink("无推理块"))
	assert.Equal(t, "", stripThink("<think>只有推理</think>"))
}
