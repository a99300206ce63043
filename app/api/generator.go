package api

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/rss-transmission/app/database"
)

// Generator renders submission history as an RSS 2.0 document so the
// outcome of each cycle can be followed from any feed reader.
type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

func (g *Generator) Run(selfLink string, submissions []database.Submission) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "RSS Transmission submissions", 4)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", "Torrents submitted to Transmission", 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(submissions) > 0 {
		lastBuildDate = submissions[0].CreatedAt.In(time.Local)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Transmission/%s", g.version), 4)

	for _, s := range submissions {
		g.writeItem(&buf, s)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, s database.Submission) {
	buf.WriteString("    <item>\n")

	// identities repeat when a failed submission is retried
	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(fmt.Sprintf("%d:%s", s.ID, s.Identity)))
	buf.WriteString("</guid>\n")

	title := s.Title
	if title == "" {
		title = s.Identity
	}
	if !s.Succeeded() {
		title = "[failed] " + title
	}
	g.writeElement(buf, "title", title, 6)

	if g.isURL(s.Payload) {
		g.writeElement(buf, "link", s.Payload, 6)
	}

	g.writeElement(buf, "description", g.describe(s), 6)
	g.writeElement(buf, "pubDate", s.CreatedAt.In(time.Local).Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", s.FeedName, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) describe(s database.Submission) string {
	var parts []string

	if s.Succeeded() {
		parts = append(parts, "Added")
	} else if s.Error != "" {
		parts = append(parts, "Failed: "+s.Error)
	} else {
		parts = append(parts, "Rejected: "+s.Result)
	}

	if s.DownloadDir != "" {
		parts = append(parts, "to "+s.DownloadDir)
	}
	if s.Paused {
		parts = append(parts, "(paused)")
	}

	return strings.Join(parts, " ")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "magnet:")
}
