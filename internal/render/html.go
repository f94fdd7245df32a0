package render

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// extractHrefs collects every <a href> value from an HTML fragment, in
// document order.
func extractHrefs(fragment []byte) []string {
	doc, err := html.Parse(bytes.NewReader(fragment))
	if err != nil {
		// goldmark output is well-formed; a parse failure means no anchors.
		return nil
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := getAttr(n, "href"); href != "" {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs
}

// rewriteInternalLinks rewrites href attribute values for which resolve
// returns a replacement. It operates on the serialized fragment directly so
// the rest of the renderer's output stays byte-identical; goldmark always
// emits double-quoted href attributes.
func rewriteInternalLinks(fragment []byte, resolve func(href string) (string, bool)) []byte {
	const marker = `href="`

	var out bytes.Buffer
	rest := fragment
	for {
		i := bytes.Index(rest, []byte(marker))
		if i < 0 {
			out.Write(rest)
			break
		}
		start := i + len(marker)
		end := bytes.IndexByte(rest[start:], '"')
		if end < 0 {
			out.Write(rest)
			break
		}

		href := string(rest[start : start+end])
		out.Write(rest[:start])
		if canonical, ok := resolve(href); ok {
			out.WriteString(canonical)
		} else {
			out.WriteString(href)
		}
		rest = rest[start+end:]
	}
	return out.Bytes()
}

// firstParagraphText returns the text content of the first <p> element.
func firstParagraphText(fragment []byte) string {
	doc, err := html.Parse(bytes.NewReader(fragment))
	if err != nil {
		return ""
	}

	var para *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if para != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "p" {
			para = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if para == nil {
		return ""
	}
	return nodeText(para)
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
