package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/frontmatter"
)

// Parser renders markdown to HTML. Raw HTML in the source is not passed
// through, so model output can be rendered as is.
type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			&frontmatter.Extender{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithXHTML(),
		),
	)

	return &Parser{
		md: md,
	}
}

func (p *Parser) Parse(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	err := p.md.Convert(source, &buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document is a markdown file split into its frontmatter and its body.
type Document struct {
	Meta map[string]any
	Body string
}

// ParseDocument reads the frontmatter of source and returns it together
// with the markdown that follows it.
func (p *Parser) ParseDocument(source []byte) Document {
	return Document{
		Meta: p.ExtractFrontmatter(source),
		Body: string(bytes.TrimSpace(stripFrontmatter(source))),
	}
}

func (p *Parser) ExtractFrontmatter(source []byte) map[string]any {
	context := parser.NewContext()
	p.md.Parser().Parse(text.NewReader(source), parser.WithContext(context))

	data := frontmatter.Get(context)
	if data == nil {
		return make(map[string]any)
	}

	var meta map[string]any
	err := data.Decode(&meta)
	if err != nil {
		return make(map[string]any)
	}
	return meta
}

func stripFrontmatter(source []byte) []byte {
	for _, delim := range []string{"---", "+++"} {
		open := []byte(delim + "\n")
		if !bytes.HasPrefix(source, open) {
			continue
		}
		rest := source[len(open):]
		closing := []byte("\n" + delim)
		if i := bytes.Index(rest, closing); i >= 0 {
			rest = rest[i+len(closing):]
			if j := bytes.IndexByte(rest, '\n'); j >= 0 {
				return rest[j+1:]
			}
			return nil
		}
	}
	return source
}
