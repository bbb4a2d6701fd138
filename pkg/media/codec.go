// Package media converts generated binary payloads between base64 text, raw
// byte buffers and playable container formats. Generated audio and video
// round-trip through the text-based history store, so every transform here
// must be byte-exact.
package media

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidBase64 = goerr.New("invalid base64 payload")

// Blob is a byte buffer tagged with a MIME type
type Blob struct {
	MIMEType string
	Data     []byte
}

// Encode encodes bytes with the standard base64 alphabet, no line wrapping
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode decodes standard base64 text
func Decode(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidBase64, err.Error())
	}
	return data, nil
}

// BlobToBase64 returns the blob payload as bare base64 text, the form the
// history store persists
func BlobToBase64(blob *Blob) string {
	return Encode(blob.Data)
}

// StripDataURI removes a data-URI prefix from base64 text if one is present
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// BlobFromBase64 decodes base64 text into a blob tagged with the given MIME
// type. Data-URI prefixes are accepted and stripped.
func BlobFromBase64(s, mimeType string) (*Blob, error) {
	data, err := Decode(StripDataURI(s))
	if err != nil {
		return nil, err
	}
	return &Blob{MIMEType: mimeType, Data: data}, nil
}

// DataURI renders the blob as a data URI usable as an inline resource
func DataURI(blob *Blob) string {
	return fmt.Sprintf("data:%s;base64,%s", blob.MIMEType, Encode(blob.Data))
}
