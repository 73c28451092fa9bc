package smtp

import (
	"bytes"
	"io"

	"github.com/jhillyerd/enmime"
)

// ParsedEmail represents a parsed inbound email message
type ParsedEmail struct {
	From     string
	To       string
	Cc       string
	Subject  string
	BodyText string
	BodyHTML string

	Attachments []ParsedAttachment
}

// ParsedAttachment represents a parsed email attachment. ContentID is set
// for inline parts referenced from the body via cid: links.
type ParsedAttachment struct {
	Filename  string
	ContentID string
	Content   io.Reader
	Size      int64
}

// ParseEmail parses an email from an io.Reader
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		From:     env.GetHeader("From"),
		To:       env.GetHeader("To"),
		Cc:       env.GetHeader("Cc"),
		Subject:  env.GetHeader("Subject"),
		BodyText: env.Text,
		BodyHTML: env.HTML,
	}

	for _, att := range env.Inlines {
		if att.FileName == "" {
			continue
		}
		parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
			Filename:  att.FileName,
			ContentID: att.ContentID,
			Content:   bytes.NewReader(att.Content),
			Size:      int64(len(att.Content)),
		})
	}
	for _, att := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
			Filename:  att.FileName,
			ContentID: att.ContentID,
			Content:   bytes.NewReader(att.Content),
			Size:      int64(len(att.Content)),
		})
	}

	return parsed, nil
}

// Body returns the preferred body representation: HTML when present,
// otherwise plain text.
func (p *ParsedEmail) Body() string {
	if p.BodyHTML != "" {
		return p.BodyHTML
	}
	return p.BodyText
}
