package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Format 标识文章正文的存储形式。
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatTree     Format = "tree"
)

// 文档树节点类型
const (
	KindDoc         = "doc"
	KindDocument    = "document"
	KindParagraph   = "paragraph"
	KindHeading     = "heading"
	KindBulletList  = "bulletList"
	KindOrderedList = "orderedList"
	KindListItem    = "listItem"
	KindCodeBlock   = "codeBlock"
	KindBlockquote  = "blockquote"
	KindImage       = "image"
	KindHardBreak   = "hardBreak"
	KindText        = "text"
)

// 行内样式
const (
	MarkBold   = "bold"
	MarkItalic = "italic"
	MarkCode   = "code"
)

var (
	ErrEmptyContent  = errors.New("content is empty")
	ErrUnknownFormat = errors.New("unknown content format")
	ErrInvalidTree   = errors.New("document tree root must be a doc node")
)

// Node 是富文本文档树中的一个节点。
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark 是附着在文本片段上的行内样式。
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Attr returns the string form of an attribute, or "" when absent.
func (n Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	switch v := n.Attrs[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// IntAttr returns an integer attribute and whether it was present and numeric.
func (n Node) IntAttr(key string) (int, bool) {
	raw := strings.TrimSpace(n.Attr(key))
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// Content 是正文的二选一联合：Markdown 文本或文档树。
// 在边界处解析一次，下游只根据 Format 分支。
type Content struct {
	Format   Format
	Markdown string
	Tree     *Node
}

// Markdown wraps a Markdown string.
func Markdown(src string) Content {
	return Content{Format: FormatMarkdown, Markdown: src}
}

// Tree wraps a document tree.
func Tree(root *Node) Content {
	return Content{Format: FormatTree, Tree: root}
}

// IsZero reports whether no representation was set.
func (c Content) IsZero() bool {
	return c.Format == ""
}

// IsEmpty reports whether the content carries no text at all.
func (c Content) IsEmpty() bool {
	switch c.Format {
	case FormatMarkdown:
		return strings.TrimSpace(c.Markdown) == ""
	case FormatTree:
		return c.Tree == nil || len(c.Tree.Content) == 0
	default:
		return true
	}
}

// Decode 根据存储列还原正文。
func Decode(format, raw string) (Content, error) {
	switch Format(strings.TrimSpace(format)) {
	case FormatMarkdown, "":
		return Markdown(raw), nil
	case FormatTree:
		root, err := ParseTree([]byte(raw))
		if err != nil {
			return Content{}, err
		}
		return Tree(root), nil
	default:
		return Content{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Encode 返回写入存储的 (format, raw) 两列。
func (c Content) Encode() (string, string, error) {
	switch c.Format {
	case FormatMarkdown:
		return string(FormatMarkdown), c.Markdown, nil
	case FormatTree:
		if c.Tree == nil {
			return "", "", ErrEmptyContent
		}
		raw, err := json.Marshal(c.Tree)
		if err != nil {
			return "", "", err
		}
		return string(FormatTree), string(raw), nil
	default:
		return "", "", ErrUnknownFormat
	}
}

// ParseTree decodes a JSON document tree and checks the root kind.
func ParseTree(raw []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("decode document tree: %w", err)
	}
	if root.Type != KindDoc && root.Type != KindDocument {
		return nil, ErrInvalidTree
	}
	return &root, nil
}

// UnmarshalJSON accepts either a JSON string (Markdown) or a JSON object (tree).
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var src string
		if err := json.Unmarshal(trimmed, &src); err != nil {
			return err
		}
		*c = Markdown(src)
		return nil
	case '{':
		root, err := ParseTree(trimmed)
		if err != nil {
			return err
		}
		*c = Tree(root)
		return nil
	default:
		return fmt.Errorf("%w: expected string or object", ErrUnknownFormat)
	}
}

// MarshalJSON writes Markdown as a string and trees as objects.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Format {
	case FormatMarkdown:
		return json.Marshal(c.Markdown)
	case FormatTree:
		return json.Marshal(c.Tree)
	default:
		return []byte("null"), nil
	}
}
