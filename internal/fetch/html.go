package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedElements are subtrees that carry navigation or boilerplate, not
// evidence.
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"head": true, "iframe": true, "svg": true, "form": true, "button": true,
}

// blockElements end a paragraph when they close.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "figure": true,
}

// ExtractText parses HTML and returns the visible text, with block elements
// separated by paragraph breaks so the chunker sees real boundaries. Parse
// failures degrade to an empty string, never an error; a page that cannot
// be parsed simply contributes no evidence.
func ExtractText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var b strings.Builder
	lastByte := byte('\n')
	write := func(s string) {
		if s == "" {
			return
		}
		b.WriteString(s)
		lastByte = s[len(s)-1]
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if b.Len() > 0 && lastByte != '\n' {
					write(" ")
				}
				write(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (blockElements[n.Data] || n.Data == "br") {
			write("\n\n")
		}
	}
	walk(doc)

	return collapseBreaks(b.String())
}

func collapseBreaks(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
