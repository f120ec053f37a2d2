package content

import "strings"

// Visitor 为每种节点类型提供一个合并函数。渲染器与摘要提取共用 Fold 遍历，
// 新增节点类型只需在此处分派一次。
// 未设置的函数等同于 Unknown。
type Visitor[T any] struct {
	Text        func(n Node) T
	Paragraph   func(n Node, children []T) T
	Heading     func(n Node, level int, children []T) T
	BulletList  func(n Node, items []T) T
	OrderedList func(n Node, items []T) T
	ListItem    func(n Node, children []T) T
	CodeBlock   func(n Node, code string) T
	Blockquote  func(n Node, children []T) T
	Image       func(n Node, src, alt string) T
	HardBreak   func(n Node) T
	Document    func(n Node, blocks []T) T
	Unknown     func(n Node) T
}

// Fold walks the tree rooted at n depth-first and combines the results
// bottom-up with v. Children are folded in document order.
func Fold[T any](n Node, v Visitor[T]) T {
	switch n.Type {
	case KindText:
		if v.Text != nil {
			return v.Text(n)
		}
	case KindParagraph:
		if v.Paragraph != nil {
			return v.Paragraph(n, foldChildren(n, v))
		}
	case KindHeading:
		if v.Heading != nil {
			return v.Heading(n, HeadingLevel(n), foldChildren(n, v))
		}
	case KindBulletList:
		if v.BulletList != nil {
			return v.BulletList(n, foldChildren(n, v))
		}
	case KindOrderedList:
		if v.OrderedList != nil {
			return v.OrderedList(n, foldChildren(n, v))
		}
	case KindListItem:
		if v.ListItem != nil {
			return v.ListItem(n, foldChildren(n, v))
		}
	case KindCodeBlock:
		if v.CodeBlock != nil {
			return v.CodeBlock(n, rawText(n))
		}
	case KindBlockquote:
		if v.Blockquote != nil {
			return v.Blockquote(n, foldChildren(n, v))
		}
	case KindImage:
		if v.Image != nil {
			return v.Image(n, n.Attr("src"), n.Attr("alt"))
		}
	case KindHardBreak:
		if v.HardBreak != nil {
			return v.HardBreak(n)
		}
	case KindDoc, KindDocument:
		if v.Document != nil {
			return v.Document(n, foldChildren(n, v))
		}
	}
	return unknown(n, v)
}

func foldChildren[T any](n Node, v Visitor[T]) []T {
	if len(n.Content) == 0 {
		return nil
	}
	out := make([]T, 0, len(n.Content))
	for _, child := range n.Content {
		out = append(out, Fold(child, v))
	}
	return out
}

func unknown[T any](n Node, v Visitor[T]) T {
	if v.Unknown != nil {
		return v.Unknown(n)
	}
	var zero T
	return zero
}

// HeadingLevel returns attrs.level clamped to 1..6; anything else is 1.
func HeadingLevel(n Node) int {
	level, ok := n.IntAttr("level")
	if !ok || level < 1 || level > 6 {
		return 1
	}
	return level
}

// rawText concatenates the text of direct text children; marks are ignored.
func rawText(n Node) string {
	if n.Text != "" {
		return n.Text
	}
	var b strings.Builder
	for _, child := range n.Content {
		if child.Type == KindText {
			b.WriteString(child.Text)
		}
	}
	return b.String()
}
