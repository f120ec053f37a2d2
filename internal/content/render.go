package content

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	languagePattern   = regexp.MustCompile(`^[A-Za-z0-9_+#-]+$`)
	highlightClassSet = regexp.MustCompile(`^[A-Za-z0-9_\- ]+$`)
)

// Renderer 将正文渲染为 HTML。Markdown 经 goldmark 渲染、chroma 高亮后再由
// bluemonday 清洗；文档树按节点类型逐个渲染，所有文本均做转义。
type Renderer struct {
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

type rendererOptions struct {
	highlightStyle string
	highlight      bool
}

// Option configures a Renderer.
type Option func(*rendererOptions)

// WithHighlightStyle picks the chroma style name used for fenced code.
func WithHighlightStyle(style string) Option {
	return func(o *rendererOptions) {
		if strings.TrimSpace(style) != "" {
			o.highlightStyle = style
		}
	}
}

// WithoutHighlighting disables fenced code highlighting.
func WithoutHighlighting() Option {
	return func(o *rendererOptions) {
		o.highlight = false
	}
}

// NewRenderer builds a Renderer with GFM extensions and class-based highlighting.
func NewRenderer(opts ...Option) *Renderer {
	options := rendererOptions{highlightStyle: "github", highlight: true}
	for _, opt := range opts {
		opt(&options)
	}

	extensions := []goldmark.Extender{extension.GFM, extension.Linkify, extension.Table}
	if options.highlight {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(options.highlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	}

	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extensions...),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
		),
		sanitizer: newSanitizer(),
	}
}

// newSanitizer extends the UGC policy so the highlighter's class attributes
// survive sanitisation.
func newSanitizer() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("pre", "code", "span")
	policy.AllowAttrs("class").Matching(highlightClassSet).OnElements("pre", "code", "span")
	return policy
}

// Render dispatches on the content format.
func (r *Renderer) Render(c Content) (string, error) {
	switch c.Format {
	case FormatMarkdown:
		return r.RenderMarkdown(c.Markdown)
	case FormatTree:
		return r.RenderTree(c.Tree), nil
	default:
		return "", ErrUnknownFormat
	}
}

// RenderMarkdown converts Markdown to sanitised HTML.
func (r *Renderer) RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return r.sanitizer.Sanitize(buf.String()), nil
}

// RenderTree renders a document tree. It never fails: unknown or malformed
// nodes render as empty strings.
func (r *Renderer) RenderTree(root *Node) string {
	if root == nil {
		return ""
	}
	return Fold(*root, htmlVisitor)
}

var htmlVisitor = Visitor[string]{
	Text: renderText,
	Paragraph: func(_ Node, children []string) string {
		return "<p>" + strings.Join(children, "") + "</p>"
	},
	Heading: func(_ Node, level int, children []string) string {
		return fmt.Sprintf("<h%d>%s</h%d>", level, strings.Join(children, ""), level)
	},
	BulletList: func(n Node, items []string) string {
		return renderList(n, "<ul>", "</ul>", items)
	},
	OrderedList: func(n Node, items []string) string {
		open := "<ol>"
		if start, ok := n.IntAttr("start"); ok && start > 1 {
			open = `<ol start="` + strconv.Itoa(start) + `">`
		}
		return renderList(n, open, "</ol>", items)
	},
	ListItem: renderListItem,
	CodeBlock: func(n Node, code string) string {
		class := ""
		if lang := strings.TrimSpace(n.Attr("language")); lang != "" && languagePattern.MatchString(lang) {
			class = ` class="language-` + lang + `"`
		}
		return "<pre><code" + class + ">" + html.EscapeString(code) + "</code></pre>"
	},
	Blockquote: func(n Node, children []string) string {
		if len(n.Content) == 0 {
			return ""
		}
		return "<blockquote>" + strings.Join(children, "") + "</blockquote>"
	},
	Image:     renderImage,
	HardBreak: func(Node) string { return "<br>" },
	Document: func(_ Node, blocks []string) string {
		return strings.Join(blocks, "")
	},
}

// renderText wraps a run in a fixed order: strong outside em outside code.
func renderText(n Node) string {
	var bold, italic, code bool
	for _, mark := range n.Marks {
		switch mark.Type {
		case MarkBold, "strong":
			bold = true
		case MarkItalic, "em":
			italic = true
		case MarkCode:
			code = true
		}
	}

	out := html.EscapeString(n.Text)
	if code {
		out = "<code>" + out + "</code>"
	}
	if italic {
		out = "<em>" + out + "</em>"
	}
	if bold {
		out = "<strong>" + out + "</strong>"
	}
	return out
}

func renderList(n Node, openTag, closeTag string, items []string) string {
	var b strings.Builder
	for i, item := range items {
		if n.Content[i].Type != KindListItem || item == "" {
			continue
		}
		b.WriteString(item)
	}
	if b.Len() == 0 {
		return ""
	}
	return openTag + b.String() + closeTag
}

// renderListItem unwraps a single paragraph so tight items read <li>text</li>.
func renderListItem(n Node, children []string) string {
	if len(n.Content) == 0 {
		return ""
	}
	if len(n.Content) == 1 && n.Content[0].Type == KindParagraph {
		inner := strings.TrimSuffix(strings.TrimPrefix(children[0], "<p>"), "</p>")
		return "<li>" + inner + "</li>"
	}
	return "<li>" + strings.Join(children, "") + "</li>"
}

func renderImage(n Node, src, alt string) string {
	src = strings.TrimSpace(src)
	if src == "" || !isSafeURL(src) {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<img src="`)
	b.WriteString(html.EscapeString(src))
	b.WriteString(`" alt="`)
	b.WriteString(html.EscapeString(alt))
	b.WriteString(`"`)
	if title := n.Attr("title"); title != "" {
		b.WriteString(` title="`)
		b.WriteString(html.EscapeString(title))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	return b.String()
}

func isSafeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return true
	default:
		return false
	}
}
