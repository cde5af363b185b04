package gmail

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	gmail "google.golang.org/api/gmail/v1"
)

// MessageBody extracts the text body of a message. A text/plain part wins;
// otherwise the first text/html part is decoded and stripped of markup.
// Returns the empty string when the message carries no readable body.
func MessageBody(m *gmail.Message) string {
	if m == nil || m.Payload == nil {
		return ""
	}

	var plain, html string
	WalkParts(m.Payload, func(part *gmail.MessagePart) {
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		switch part.MimeType {
		case "text/plain":
			if plain == "" {
				if data, err := DecodeBody(part.Body.Data); err == nil {
					plain = string(data)
				}
			}
		case "text/html":
			if html == "" {
				if data, err := DecodeBody(part.Body.Data); err == nil {
					html = string(data)
				}
			}
		}
	})

	if plain != "" {
		return plain
	}
	if html != "" {
		return StripHTML(html)
	}

	// Single-part messages keep the body on the payload itself.
	if m.Payload.Body != nil && m.Payload.Body.Data != "" {
		if data, err := DecodeBody(m.Payload.Body.Data); err == nil {
			body := string(data)
			if m.Payload.MimeType == "text/html" {
				return StripHTML(body)
			}
			return body
		}
	}

	return ""
}

// StripHTML reduces an HTML document to its visible text. Anchor targets are
// appended so links survive the markup removal even when the link text is a
// label rather than the URL itself.
func StripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script,style").Remove()

	var sb strings.Builder
	sb.WriteString(doc.Text())
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && href != "" {
			sb.WriteString("\n")
			sb.WriteString(href)
		}
	})
	return strings.TrimSpace(sb.String())
}
