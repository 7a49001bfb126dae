// Package mailfile loads .eml files into envelopes the classifier and
// extractors consume. It walks MIME multiparts, decodes transfer encodings
// and charsets, keeps the first text/plain and text/html parts as the
// document bodies, and collects named attachments with content hashes.
package mailfile

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Attachment is a named MIME part stored alongside its parent message.
type Attachment struct {
	Filename    string
	ContentType string
	Payload     []byte
	ContentID   string
	SHA256      string
}

// Envelope is a parsed message. TextBody and HTMLBody are empty strings when
// the corresponding part is absent; SentAt is the zero time when the Date
// header is missing or malformed.
type Envelope struct {
	SourcePath  string
	MessageID   string
	Subject     string
	Sender      string
	Recipients  []string
	CC          []string
	BCC         []string
	SentAt      time.Time
	RawBytes    []byte
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
	Headers     map[string]string
}

// SHA256 returns the hex digest of the raw message bytes, used by ingestion
// for content dedup.
func (e *Envelope) SHA256() string {
	sum := sha256.Sum256(e.RawBytes)
	return hex.EncodeToString(sum[:])
}

// Load reads and parses the .eml file at path.
func Load(path string) (*Envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mailfile: read %s: %w", path, err)
	}

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("mailfile: parse %s: %w", path, err)
	}

	env := &Envelope{
		SourcePath: path,
		MessageID:  msg.Header.Get("Message-ID"),
		Subject:    decodeHeader(msg.Header.Get("Subject")),
		Sender:     decodeHeader(msg.Header.Get("From")),
		Recipients: addressList(msg.Header.Get("To")),
		CC:         addressList(msg.Header.Get("Cc")),
		BCC:        addressList(msg.Header.Get("Bcc")),
		RawBytes:   raw,
		Headers:    flattenHeader(msg.Header),
	}

	if date, err := msg.Header.Date(); err == nil {
		env.SentAt = date
	}

	header := textproto.MIMEHeader{}
	for k, v := range msg.Header {
		header[k] = v
	}
	if err := walkPart(env, header, msg.Body); err != nil {
		return nil, fmt.Errorf("mailfile: decode %s: %w", path, err)
	}

	return env, nil
}

// walkPart recurses through multipart containers and routes leaf parts into
// the envelope.
func walkPart(env *Envelope, header textproto.MIMEHeader, body io.Reader) error {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable content type: treat the part as opaque text.
		mediaType = "text/plain"
		params = nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart part without boundary")
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := walkPart(env, part.Header, part); err != nil {
				return err
			}
		}
	}

	payload, err := io.ReadAll(decodeTransfer(body, header.Get("Content-Transfer-Encoding")))
	if err != nil {
		return err
	}

	disposition, dparams, _ := mime.ParseMediaType(header.Get("Content-Disposition"))
	filename := dparams["filename"]
	if filename == "" {
		filename = params["name"]
	}
	if (disposition == "attachment" || disposition == "inline") && filename != "" {
		sum := sha256.Sum256(payload)
		env.Attachments = append(env.Attachments, Attachment{
			Filename:    filename,
			ContentType: mediaType,
			Payload:     payload,
			ContentID:   strings.Trim(header.Get("Content-Id"), "<>"),
			SHA256:      hex.EncodeToString(sum[:]),
		})
		return nil
	}

	switch mediaType {
	case "text/plain":
		if env.TextBody == "" {
			env.TextBody = decodeCharset(payload, params["charset"])
		}
	case "text/html":
		if env.HTMLBody == "" {
			env.HTMLBody = decodeCharset(payload, params["charset"])
		}
	}
	return nil
}

// decodeTransfer wraps body in a decoder for the given transfer encoding.
func decodeTransfer(body io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		return quotedprintable.NewReader(body)
	default:
		return body
	}
}

// decodeCharset converts a text payload to UTF-8, defaulting to UTF-8 when
// the charset is missing or unknown.
func decodeCharset(payload []byte, label string) string {
	if label == "" {
		return string(payload)
	}
	r, err := charset.NewReaderLabel(label, strings.NewReader(string(payload)))
	if err != nil {
		return string(payload)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(payload)
	}
	return string(decoded)
}

var wordDecoder = mime.WordDecoder{
	CharsetReader: func(label string, input io.Reader) (io.Reader, error) {
		return charset.NewReaderLabel(label, input)
	},
}

// decodeHeader decodes RFC 2047 encoded words, falling back to the raw value.
func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

func addressList(value string) []string {
	if value == "" {
		return nil
	}
	parsed, err := mail.ParseAddressList(value)
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range parsed {
		if a.Address != "" {
			out = append(out, a.Address)
		}
	}
	return out
}

func flattenHeader(h mail.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
