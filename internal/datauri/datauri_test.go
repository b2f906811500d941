package datauri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripPrefix(t *testing.T) {
	for _, subtype := range []string{"png", "jpeg", "jpg"} {
		t.Run(subtype, func(t *testing.T) {
			in := "data:image/" + subtype + ";base64,iVBORw0KGgo="
			stripped := StripPrefix(in)
			assert.Equal(t, "iVBORw0KGgo=", stripped)
			assert.Equal(t, stripped, StripPrefix(stripped), "stripping must be idempotent")
			assert.Equal(t, in, "data:image/"+subtype+";base64,"+stripped)
		})
	}
}

func TestStripPrefix_LeavesUnsupportedAlone(t *testing.T) {
	in := "data:image/webp;base64,UklGRg=="
	assert.Equal(t, in, StripPrefix(in))
}

func TestParseRoundTrip(t *testing.T) {
	for _, subtype := range []string{"png", "jpeg", "jpg"} {
		in := "data:image/" + subtype + ";base64,AAAA"
		d, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, subtype, d.Subtype)
		assert.Equal(t, "AAAA", d.Data)
		assert.Equal(t, in, d.Prefix()+d.Data)
		assert.Equal(t, in, d.String())
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("AAAA")
	assert.ErrorIs(t, err, ErrNotDataURI)

	_, err = Parse("data:image/gif;base64,R0lGOD")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrNotDataURI)
}

func TestMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", DataURI{Subtype: "png"}.MIMEType())
	assert.Equal(t, "image/jpeg", DataURI{Subtype: "jpeg"}.MIMEType())
	assert.Equal(t, "image/jpeg", DataURI{Subtype: "jpg"}.MIMEType())
}

func TestBytes(t *testing.T) {
	b, err := DataURI{Subtype: "png", Data: "AAAA"}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, b)
	assert.Equal(t, "data:image/png;base64,AAAA", EncodeBytes("image/png", b))

	_, err = DataURI{Subtype: "png", Data: "not base64!"}.Bytes()
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("data:image/webp;base64,AAAA"))
	assert.True(t, IsImage("data:image/png;base64,AAAA"))
	assert.False(t, IsImage("https://example.com/a.png"))
}

func TestDecode(t *testing.T) {
	mime, b, err := Decode(EncodeBytes("image/webp", []byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, []byte{1, 2, 3}, b)

	_, _, err = Decode("AAAA")
	assert.ErrorIs(t, err, ErrNotDataURI)
	_, _, err = Decode("data:image/png;base64,***")
	assert.ErrorIs(t, err, ErrBadPayload)
}
