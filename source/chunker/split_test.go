package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LanguageChinese, detectLanguage("这是一段中文文本，用于测试语言检测。"))
	assert.Equal(t, LanguageEnglish, detectLanguage("This is plain English text."))
	assert.Equal(t, LanguageEnglish, detectLanguage("mixed 中文 but mostly English words here"))
}

func TestResolveLanguage(t *testing.T) {
	assert.Equal(t, LanguageChinese, resolveLanguage(LanguageChinese, "anything"))
	assert.Equal(t, LanguageEnglish, resolveLanguage(LanguageAuto, "English text"))
	assert.Equal(t, LanguageChinese, resolveLanguage(LanguageAuto, "中文内容测试"))
}

func TestSplitAtSemanticBoundary_ShortTextUnchanged(t *testing.T) {
	pieces := splitAtSemanticBoundary("short text", 100, LanguageEnglish)
	assert.Equal(t, []string{"short text"}, pieces)
}

func TestSplitAtSemanticBoundary_CutsAtSentences(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("A complete sentence ends here. ", 10))

	pieces := splitAtSemanticBoundary(text, 100, LanguageEnglish)
	require.Greater(t, len(pieces), 1)

	for _, piece := range pieces {
		assert.LessOrEqual(t, runeLen(piece), 100)
	}
	// Every piece but possibly the last ends on a sentence boundary.
	for _, piece := range pieces[:len(pieces)-1] {
		assert.True(t, strings.HasSuffix(piece, "."), "piece %q", piece)
	}
}

func TestSplitAtSemanticBoundary_Chinese(t *testing.T) {
	text := strings.Repeat("这是一个完整的句子。", 20)

	pieces := splitAtSemanticBoundary(text, 50, LanguageChinese)
	require.Greater(t, len(pieces), 1)

	for _, piece := range pieces {
		assert.LessOrEqual(t, runeLen(piece), 50)
	}
	for _, piece := range pieces[:len(pieces)-1] {
		assert.True(t, strings.HasSuffix(piece, "。"), "piece %q", piece)
	}
}

func TestSplitAtSemanticBoundary_ForceSplitWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("x", 250)

	pieces := splitAtSemanticBoundary(text, 100, LanguageEnglish)
	require.Len(t, pieces, 3)
	assert.Equal(t, 100, runeLen(pieces[0]))
	assert.Equal(t, 100, runeLen(pieces[1]))
	assert.Equal(t, 50, runeLen(pieces[2]))
}

func TestSplitAtSemanticBoundary_NoContentLost(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta. ", 15))

	pieces := splitAtSemanticBoundary(text, 80, LanguageEnglish)
	joined := strings.Join(pieces, " ")

	assert.Equal(t,
		strings.Join(strings.Fields(text), " "),
		strings.Join(strings.Fields(joined), " "))
}

func TestRuneLen(t *testing.T) {
	assert.Equal(t, 5, runeLen("hello"))
	assert.Equal(t, 4, runeLen("中文文本"))
}
