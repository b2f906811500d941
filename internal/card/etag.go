package card

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ETag returns a strong entity tag for the record: a quoted BLAKE2b-128 hash
// over its fields. Field order is fixed.
func ETag(r Record) (string, error) {
	h, err := blake2b.New(16, nil)
	if err != nil {
		return "", fmt.Errorf("创建 blake2b-128 hasher 失败: %w", err)
	}

	for _, s := range []string{r.ID, r.Image, r.Recipient, r.Sender, r.Greeting, r.Template} {
		// 长度前缀，避免字段拼接产生歧义
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	var flags [9]byte
	if r.ShowSender {
		flags[0] = 1
	}
	binary.BigEndian.PutUint64(flags[1:], uint64(r.CreatedAt.UnixMilli()))
	h.Write(flags[:])

	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`, nil
}
