package htmlutil

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CountStartTags counts the start tags named tag in markup, it tokenizes
// without building a tree so elements the parser would drop still count.
func CountStartTags(markup, tag string) int {
	z := html.NewTokenizer(strings.NewReader(markup))
	count := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return count
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == tag {
				count++
			}
		}
	}
}

// NewRowDocument parses markup made of table rows. Rows outside of a table
// are dropped by the html5 tree builder, when that happens the markup is
// parsed again inside a table and the document keeping more rows wins.
func NewRowDocument(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	kept := doc.Find("tr").Length()
	if kept >= CountStartTags(markup, "tr") {
		return doc, nil
	}

	wrapped, err := goquery.NewDocumentFromReader(strings.NewReader("<table>" + markup + "</table>"))
	if err != nil {
		return nil, err
	}
	if wrapped.Find("tr").Length() > kept {
		return wrapped, nil
	}
	return doc, nil
}

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// TrimmedText is the concatenated text of every descendant of node with
// surrounding whitespace removed.
func TrimmedText(node *html.Node) string {
	return strings.TrimSpace(GetText(node))
}

type Anchor struct {
	Name string
	Href string
}

// MissingHrefError is returned by GetAnchors when an anchor does not
// carry an href attribute at all.
type MissingHrefError struct {
	Index int
}

func (e MissingHrefError) Error() string {
	return fmt.Sprintf("anchor %d has no href attribute", e.Index)
}

// GetAnchors returns every anchor in sel in document order, the href is
// returned verbatim (not resolved) and the name is the trimmed text.
func GetAnchors(sel *goquery.Selection) ([]Anchor, error) {
	anchors := make([]Anchor, 0, len(sel.Nodes))
	for i, n := range sel.Nodes {
		href, ok := attr(n, "href")
		if !ok {
			return nil, MissingHrefError{Index: i}
		}
		anchors = append(anchors, Anchor{
			Name: TrimmedText(n),
			Href: href,
		})
	}
	return anchors, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
