// Package datauri handles the base64 image data URIs exchanged with browsers,
// e.g. "data:image/png;base64,iVBORw0...".
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNotDataURI      = errors.New("not a base64 image data URI")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrBadPayload      = errors.New("image payload is not valid base64")
)

// 只接受 png / jpeg / jpg
var prefixRe = regexp.MustCompile(`^data:image/(png|jpeg|jpg);base64,`)

var anyImagePrefixRe = regexp.MustCompile(`^data:image/([A-Za-z0-9.+-]+);base64,`)

// DataURI is a parsed image data URI.
type DataURI struct {
	// Subtype as declared by the client: "png", "jpeg" or "jpg".
	Subtype string
	// Data is the base64 text following the prefix, untouched.
	Data string
}

// MIMEType returns the canonical MIME type for the declared subtype.
// "jpg" is not a registered subtype and is reported as image/jpeg.
func (d DataURI) MIMEType() string {
	if d.Subtype == "jpg" {
		return "image/jpeg"
	}
	return "image/" + d.Subtype
}

// Prefix returns the exact prefix the URI was declared with.
func (d DataURI) Prefix() string {
	return "data:image/" + d.Subtype + ";base64,"
}

// String re-assembles the original data URI.
func (d DataURI) String() string {
	return d.Prefix() + d.Data
}

// Bytes decodes the payload.
func (d DataURI) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return b, nil
}

// StripPrefix removes a supported "data:image/<type>;base64," prefix and
// returns the rest unchanged. Input without such a prefix is returned as is,
// so applying it twice is the same as applying it once.
func StripPrefix(s string) string {
	return prefixRe.ReplaceAllString(s, "")
}

// Parse splits a data URI into its declared subtype and base64 payload.
func Parse(s string) (DataURI, error) {
	m := prefixRe.FindStringSubmatch(s)
	if m == nil {
		if other := anyImagePrefixRe.FindStringSubmatch(s); other != nil {
			return DataURI{}, fmt.Errorf("%w: image/%s", ErrUnsupportedType, other[1])
		}
		return DataURI{}, ErrNotDataURI
	}
	return DataURI{Subtype: m[1], Data: s[len(m[0]):]}, nil
}

// Encode builds a data URI from a MIME type and base64 text.
func Encode(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

// EncodeBytes builds a data URI from raw bytes.
func EncodeBytes(mimeType string, data []byte) string {
	return Encode(mimeType, base64.StdEncoding.EncodeToString(data))
}

// IsImage reports whether s looks like any base64 image data URI. Used for
// lenient validation of stored card images, which may come back from the
// model as e.g. image/webp.
func IsImage(s string) bool {
	return anyImagePrefixRe.MatchString(strings.TrimSpace(s))
}

// Decode splits any base64 image data URI into its MIME type and raw bytes.
// Unlike Parse it does not restrict the subtype; it is meant for images the
// model produced.
func Decode(s string) (string, []byte, error) {
	m := anyImagePrefixRe.FindStringSubmatch(s)
	if m == nil {
		return "", nil, ErrNotDataURI
	}
	b, err := base64.StdEncoding.DecodeString(s[len(m[0]):])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return "image/" + m[1], b, nil
}
