// ABOUTME: Plain-text and HTML renderings of a transcript
// ABOUTME: HTML export converts agent markdown with goldmark inside an embedded template

package render

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/coven-chat/internal/conversation"
)

// EmptyTranscript is shown when there is nothing to render.
const EmptyTranscript = "No messages yet. Start a conversation!"

//go:embed templates/export.html
var templateFS embed.FS

var exportTmpl = template.Must(template.ParseFS(templateFS, "templates/export.html"))

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// now is replaced in tests.
var now = time.Now

type exportMessage struct {
	Class string
	Label string
	Body  template.HTML
}

// Text renders messages as labelled paragraphs.
func Text(messages []conversation.Message) string {
	if len(messages) == 0 {
		return EmptyTranscript + "\n"
	}
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Sender.Label(), m.Body)
	}
	return b.String()
}

// HTML renders messages as a standalone HTML document.
func HTML(title string, messages []conversation.Message) ([]byte, error) {
	items := make([]exportMessage, 0, len(messages))
	for _, m := range messages {
		body, err := bodyHTML(m)
		if err != nil {
			return nil, err
		}
		items = append(items, exportMessage{
			Class: string(m.Sender),
			Label: m.Sender.Label(),
			Body:  body,
		})
	}

	data := struct {
		Title    string
		Exported string
		Messages []exportMessage
	}{
		Title:    title,
		Exported: now().UTC().Format(time.RFC1123),
		Messages: items,
	}

	var buf bytes.Buffer
	if err := exportTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering export: %w", err)
	}
	return buf.Bytes(), nil
}

func bodyHTML(m conversation.Message) (template.HTML, error) {
	if m.Sender != conversation.SenderAgent {
		escaped := html.EscapeString(m.Body)
		return template.HTML("<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"), nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(m.Body), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
