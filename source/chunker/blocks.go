package chunker

import (
	"regexp"
	"strings"
)

// BlockType classifies a span of raw text prior to chunk assembly.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
	BlockCode      BlockType = "code"
	BlockTable     BlockType = "table"
	BlockQuote     BlockType = "quote"
	BlockSeparator BlockType = "separator"
	BlockUnknown   BlockType = "unknown"
)

// Block is one classified span of source text. Blocks are immutable after
// creation; merging produces new blocks instead of editing in place.
type Block struct {
	Type       BlockType
	Content    string
	Level      int    // heading depth or list nesting
	Language   string // code fence language
	StartIndex int    // byte offset in source text
	EndIndex   int
}

var (
	mdHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

	// CJK-idiom heading patterns with their inferred levels.
	cjkChapterRe = regexp.MustCompile(`^第[0-9一二三四五六七八九十百千]+[章节篇部卷]`)
	cjkEnumRe    = regexp.MustCompile(`^[一二三四五六七八九十]+、`)
	cjkParenRe   = regexp.MustCompile(`^[（(][0-9一二三四五六七八九十]+[)）]`)
	numberedRe   = regexp.MustCompile(`^\d{1,3}[.、]\s*\S`)

	tableRowRe  = regexp.MustCompile(`^\|.*\|$`)
	separatorRe = regexp.MustCompile(`^(-{3,}|={3,}|_{3,}|\*{3,})$`)
	listItemRe  = regexp.MustCompile(`^(\s*)(?:[-*+•]|\d+[.)])\s+\S`)
	fenceRe     = regexp.MustCompile("^(```|~~~)\\s*(\\S*)\\s*$")

	sentenceEndRe = regexp.MustCompile(`[。．！？!?;；]\s*$`)
)

// blockParser is a line-scanner state machine producing Blocks.
type blockParser struct {
	blocks []Block

	curType  BlockType
	curLines []string
	curStart int
	curEnd   int
	curLevel int
	curLang  string

	inCode    bool
	codeFence string
}

// parseBlocks scans text line by line and classifies it into structural
// blocks. Offsets are byte positions into the original text.
func parseBlocks(text string) []Block {
	p := &blockParser{}
	pos := 0

	for _, line := range strings.Split(text, "\n") {
		lineStart := pos
		lineEnd := pos + len(line)
		pos = lineEnd + 1 // the split newline

		p.scanLine(line, lineStart, lineEnd)
	}

	p.flush()
	return p.blocks
}

// scanLine advances the state machine by one line.
func (p *blockParser) scanLine(line string, start, end int) {
	trimmed := strings.TrimSpace(line)

	// Inside a fence everything accumulates verbatim, blank lines included.
	if p.inCode {
		p.appendLine(line, end)
		if m := fenceRe.FindStringSubmatch(trimmed); m != nil && m[1] == p.codeFence {
			p.inCode = false
			p.flush()
		}
		return
	}

	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		p.flush()
		p.start(BlockCode, line, start, end)
		p.curLang = m[2]
		p.inCode = true
		p.codeFence = m[1]
		return
	}

	if tableRowRe.MatchString(trimmed) {
		if p.curType == BlockTable {
			p.appendLine(line, end)
		} else {
			p.flush()
			p.start(BlockTable, line, start, end)
		}
		return
	}

	if trimmed == "" {
		// Blank lines terminate paragraphs, lists and quotes.
		p.flush()
		return
	}

	if separatorRe.MatchString(trimmed) {
		p.flush()
		p.blocks = append(p.blocks, Block{
			Type:       BlockSeparator,
			StartIndex: start,
			EndIndex:   end,
		})
		return
	}

	if level, ok := headingLevel(line, trimmed); ok {
		p.flush()
		p.start(BlockHeading, line, start, end)
		p.curLevel = level
		p.flush()
		return
	}

	if m := listItemRe.FindStringSubmatch(line); m != nil {
		if p.curType == BlockList {
			p.appendLine(line, end)
		} else {
			p.flush()
			p.start(BlockList, line, start, end)
			p.curLevel = len(m[1])/2 + 1
		}
		return
	}

	if strings.HasPrefix(trimmed, ">") {
		if p.curType == BlockQuote {
			p.appendLine(line, end)
		} else {
			p.flush()
			p.start(BlockQuote, line, start, end)
		}
		return
	}

	if p.curType == BlockParagraph {
		p.appendLine(line, end)
	} else {
		p.flush()
		p.start(BlockParagraph, line, start, end)
	}
}

func (p *blockParser) start(t BlockType, line string, start, end int) {
	p.curType = t
	p.curLines = []string{line}
	p.curStart = start
	p.curEnd = end
	p.curLevel = 0
	p.curLang = ""
}

func (p *blockParser) appendLine(line string, end int) {
	p.curLines = append(p.curLines, line)
	p.curEnd = end
}

func (p *blockParser) flush() {
	if len(p.curLines) == 0 {
		p.curType = ""
		return
	}

	content := strings.Join(p.curLines, "\n")
	if strings.TrimSpace(content) != "" {
		p.blocks = append(p.blocks, Block{
			Type:       p.curType,
			Content:    content,
			Level:      p.curLevel,
			Language:   p.curLang,
			StartIndex: p.curStart,
			EndIndex:   p.curEnd,
		})
	}

	p.curType = ""
	p.curLines = nil
	p.curLevel = 0
	p.curLang = ""
}

// headingLevel reports whether a line is a heading and at which level.
// Markdown headings use the # count. CJK chapter markers are level 1,
// enumerations level 2, parenthesized or dotted numbering level 3. The
// numbering patterns exclude lines ending in sentence-final punctuation so
// ordinary sentences that start with a number are not misclassified.
func headingLevel(line, trimmed string) (int, bool) {
	if m := mdHeadingRe.FindStringSubmatch(trimmed); m != nil {
		return len(m[1]), true
	}

	// Indented lines are list items or continuations, never CJK headings.
	if strings.TrimLeft(line, " \t") != line {
		return 0, false
	}
	if sentenceEndRe.MatchString(trimmed) {
		return 0, false
	}

	switch {
	case cjkChapterRe.MatchString(trimmed):
		return 1, true
	case cjkEnumRe.MatchString(trimmed):
		return 2, true
	case cjkParenRe.MatchString(trimmed):
		return 3, true
	case numberedRe.MatchString(trimmed) && len([]rune(trimmed)) <= 30:
		return 3, true
	}

	return 0, false
}

// headingText strips heading markers for use as chunk metadata.
func headingText(content string) string {
	trimmed := strings.TrimSpace(content)
	if m := mdHeadingRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[2])
	}
	return trimmed
}
