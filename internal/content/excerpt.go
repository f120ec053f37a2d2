package content

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultExcerptLength 是摘要的默认最大字符数。
const DefaultExcerptLength = 150

// ExcerptEllipsis is appended to truncated excerpts.
const ExcerptEllipsis = "..."

// 转义字符先换成私有区码位，剥离标记后再还原为字面字符。
const escapeBase = 0xE000

var (
	fencedCodePattern  = regexp.MustCompile("(?ms)^[ \t]*(```|~~~)[^\n]*\n.*?^[ \t]*(```|~~~)[ \t]*$")
	escapePattern      = regexp.MustCompile(`\\([!-/:-@\[-` + "`" + `{-~])`)
	refDefPattern      = regexp.MustCompile(`(?m)^[ \t]{0,3}\[[^\]\n]+]:[ \t]*\S+.*$`)
	setextPattern      = regexp.MustCompile(`(?m)^[ \t]{0,3}(=+|-+)[ \t]*$`)
	autolinkPattern    = regexp.MustCompile(`<((?:https?|ftp|mailto):[^<>\s]+|[^<>\s@]+@[^<>\s]+)>`)
	openFencePattern   = regexp.MustCompile("(?ms)^[ \t]*(```|~~~).*\\z")
	imagePattern       = regexp.MustCompile(`!\[[^\]]*]\([^)]*\)`)
	linkPattern        = regexp.MustCompile(`\[([^\]]*)]\([^)]*\)`)
	refLinkPattern     = regexp.MustCompile(`\[([^\]]+)]\[[^\]]*]`)
	headingPattern     = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]*`)
	closingHashPattern = regexp.MustCompile(`(?m)[ \t]+#+[ \t]*$`)
	quotePattern       = regexp.MustCompile(`(?m)^[ \t]*(>[ \t]?)+`)
	bulletPattern      = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+(\[[ xX]][ \t]+)?`)
	ordinalPattern     = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+(\[[ xX]][ \t]+)?`)
	rulePattern        = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	inlineCodePattern  = regexp.MustCompile("`+([^`]*)`+")
	htmlTagPattern     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	underscorePattern  = regexp.MustCompile(`\b_{1,2}([^_\n]+?)_{1,2}\b`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Excerpt 从任一正文形式提取纯文本摘要，超过 maxLength 时截断并追加省略号。
// maxLength <= 0 时使用 DefaultExcerptLength。
func Excerpt(c Content, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultExcerptLength
	}

	var plain string
	switch c.Format {
	case FormatMarkdown:
		plain = PlainTextFromMarkdown(c.Markdown)
	case FormatTree:
		if c.Tree != nil {
			plain = PlainTextFromTree(*c.Tree)
		}
	}
	return Truncate(plain, maxLength)
}

// Truncate cuts s so that the result, ellipsis included, fits in maxLength runes.
func Truncate(s string, maxLength int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}

	keep := maxLength - utf8.RuneCountInString(ExcerptEllipsis)
	if keep <= 0 {
		return string([]rune(s)[:maxLength])
	}
	cut := strings.TrimRight(string([]rune(s)[:keep]), " \t\r\n")
	return cut + ExcerptEllipsis
}

// PlainTextFromMarkdown removes Markdown syntax and collapses whitespace.
func PlainTextFromMarkdown(src string) string {
	text := strings.ReplaceAll(src, "\r\n", "\n")
	text = fencedCodePattern.ReplaceAllString(text, "")
	text = openFencePattern.ReplaceAllString(text, "")
	text = escapePattern.ReplaceAllStringFunc(text, func(m string) string {
		return string(rune(escapeBase + int(m[1])))
	})
	text = refDefPattern.ReplaceAllString(text, "")
	text = imagePattern.ReplaceAllString(text, "")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = refLinkPattern.ReplaceAllString(text, "$1")
	text = rulePattern.ReplaceAllString(text, "")
	text = setextPattern.ReplaceAllString(text, "")
	text = headingPattern.ReplaceAllString(text, "")
	text = closingHashPattern.ReplaceAllString(text, "")
	text = quotePattern.ReplaceAllString(text, "")
	text = bulletPattern.ReplaceAllString(text, "")
	text = ordinalPattern.ReplaceAllString(text, "")
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	text = autolinkPattern.ReplaceAllString(text, "$1")
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = underscorePattern.ReplaceAllString(text, "$1")
	text = strings.NewReplacer("**", "", "*", "", "~~", "").Replace(text)
	text = strings.Map(func(r rune) rune {
		if r >= escapeBase && r < escapeBase+0x80 {
			return r - escapeBase
		}
		return r
	}, text)
	return collapseWhitespace(text)
}

// PlainTextFromTree collects text runs in document order; sibling blocks are
// separated by one space, images and code blocks contribute nothing.
func PlainTextFromTree(root Node) string {
	return collapseWhitespace(Fold(root, plainTextVisitor))
}

var plainTextVisitor = Visitor[string]{
	Text:        func(n Node) string { return n.Text },
	Paragraph:   func(_ Node, children []string) string { return strings.Join(children, "") },
	Heading:     func(_ Node, _ int, children []string) string { return strings.Join(children, "") },
	BulletList:  joinListItems,
	OrderedList: joinListItems,
	ListItem:    joinMixed,
	CodeBlock:   func(Node, string) string { return "" },
	Blockquote:  joinMixed,
	Image:       func(Node, string, string) string { return "" },
	HardBreak:   func(Node) string { return " " },
	Document:    func(_ Node, blocks []string) string { return joinBlocks(blocks) },
}

func joinBlocks(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

// joinListItems keeps only listItem children, as the renderer does.
func joinListItems(n Node, items []string) string {
	kept := make([]string, 0, len(items))
	for i, item := range items {
		if n.Content[i].Type == KindListItem {
			kept = append(kept, item)
		}
	}
	return joinBlocks(kept)
}

// joinMixed handles list items and quotes, which may hold inline runs, nested
// blocks or both: runs concatenate, blocks are separated by a space.
func joinMixed(n Node, parts []string) string {
	var b strings.Builder
	for i, part := range parts {
		inline := n.Content[i].Type == KindText || n.Content[i].Type == KindHardBreak
		if !inline && b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(part)
		if !inline {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
