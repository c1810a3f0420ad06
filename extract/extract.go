// Package extract walks a Gmail message part tree and pulls out the
// plain-text body and the attachment-bearing leaves.
package extract

import (
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/dhcgn/gmail-export/decode"
)

const mimeTextPlain = "text/plain"

// maxDepth bounds the recursion. Part trees are acyclic by construction, but
// a hostile payload could still nest absurdly deep; past this bound the walk
// truncates instead of overflowing the stack.
const maxDepth = 64

// PlainText concatenates the decoded, normalized text of every text/plain
// leaf in document order. Each contributing leaf is followed by a newline;
// the final result is trimmed once. Leaves of any other mime type contribute
// nothing, so a plain-text sibling always wins over its text/html
// alternative.
func PlainText(parts []*gmail.MessagePart) string {
	var b strings.Builder
	walkText(parts, 0, &b)
	return strings.TrimSpace(b.String())
}

func walkText(parts []*gmail.MessagePart, depth int, b *strings.Builder) {
	if depth >= maxDepth {
		return
	}
	for _, part := range parts {
		if part == nil {
			continue
		}
		// A container's own body is ignored in favor of its children.
		if len(part.Parts) > 0 {
			walkText(part.Parts, depth+1, b)
			continue
		}
		if part.MimeType != mimeTextPlain || part.Body == nil {
			continue
		}
		text := decode.Normalize(decode.Body(part.Body.Data))
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
}

// Attachments returns every leaf that carries both a filename and an
// attachment id, at any depth. Mime type plays no role here: a part skipped
// for body extraction can still be an attachment.
func Attachments(parts []*gmail.MessagePart) []*gmail.MessagePart {
	var found []*gmail.MessagePart
	walkAttachments(parts, 0, &found)
	return found
}

func walkAttachments(parts []*gmail.MessagePart, depth int, found *[]*gmail.MessagePart) {
	if depth >= maxDepth {
		return
	}
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			*found = append(*found, part)
			continue
		}
		if len(part.Parts) > 0 {
			walkAttachments(part.Parts, depth+1, found)
		}
	}
}
