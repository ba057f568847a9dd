package configapi

import (
	"bytes"
	"strings"

	goorg "github.com/niklasfasching/go-org/org"
	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	mdtext "github.com/yuin/goldmark/text"
)

// DescriptionFormat selects how description text is turned into comment lines.
type DescriptionFormat string

const (
	DescriptionPlain    DescriptionFormat = "plain"
	DescriptionMarkdown DescriptionFormat = "markdown"
	DescriptionOrg      DescriptionFormat = "org"
)

// Descriptions maps a dotted field path ("Name", "Size.Width") to its description.
type Descriptions map[string]string

// Lookup returns the description registered for path.
func (d Descriptions) Lookup(path string) (string, bool) {
	if d == nil {
		return "", false
	}
	s, ok := d[path]
	return s, ok && strings.TrimSpace(s) != ""
}

// DescriptionLines renders text as a sequence of comment line bodies (without "#").
func DescriptionLines(text string, format DescriptionFormat) []string {
	var lines []string
	switch format {
	case DescriptionMarkdown:
		lines = markdownLines(text)
	case DescriptionOrg:
		lines = orgLines(text)
	}
	if len(lines) == 0 {
		lines = plainLines(text)
	}
	return lines
}

func plainLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.Trim(text, "\n"), "\n")
}

func markdownLines(body string) []string {
	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))
	src := []byte(body)
	root := md.Parser().Parse(mdtext.NewReader(src))

	var lines []string
	_ = mdast.Walk(root, func(n mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *mdast.Heading, *mdast.Paragraph, *mdast.TextBlock:
			block := inlineLines(node, src)
			if _, ok := node.Parent().(*mdast.ListItem); ok && len(block) > 0 {
				block[0] = "- " + block[0]
			}
			lines = append(lines, block...)
			return mdast.WalkSkipChildren, nil
		case *mdast.FencedCodeBlock, *mdast.CodeBlock:
			segs := node.Lines()
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				lines = append(lines, strings.TrimRight(string(seg.Value(src)), "\r\n"))
			}
			return mdast.WalkSkipChildren, nil
		}
		return mdast.WalkContinue, nil
	})
	return lines
}

// inlineLines collects the text of a block, splitting on soft and hard breaks.
func inlineLines(n mdast.Node, src []byte) []string {
	var b bytes.Buffer
	_ = mdast.Walk(n, func(nn mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		switch t := nn.(type) {
		case *mdast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *mdast.String:
			b.Write(t.Value)
		}
		return mdast.WalkContinue, nil
	})
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func orgLines(body string) []string {
	o := goorg.New().Parse(strings.NewReader(body), "")
	out, err := o.Write(goorg.NewOrgWriter())
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimRight(line, " \t")
		if trimmed := strings.TrimLeft(line, "*"); trimmed != line && strings.HasPrefix(trimmed, " ") {
			line = strings.TrimSpace(trimmed)
		}
		lines = append(lines, line)
	}
	return lines
}
