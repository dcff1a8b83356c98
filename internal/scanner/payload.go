package scanner

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	ndefUTF16Flag  = 0x80
	ndefLangLenMsk = 0x3f
)

// DecodePayload extracts the tag identifier from the payload of the first
// NDEF record on a card. Text records start with a status byte carrying the
// language code length; that header is skipped. Cards written as
// "tag|owner" yield the first field.
func DecodePayload(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrNoTag
	}
	body := raw
	// A printable first byte means the card holds bare text. Bytes
	// 0x80-0x9f cannot start UTF-8, so they are a status byte with the
	// UTF-16 flag set.
	if status := raw[0]; status < 0x20 || (status >= ndefUTF16Flag && status < 0xa0) {
		if status&ndefUTF16Flag != 0 {
			return "", fmt.Errorf("%w: utf-16 text record", ErrUnreadable)
		}
		skip := 1 + int(status&ndefLangLenMsk)
		if skip > len(raw) {
			return "", fmt.Errorf("%w: truncated text record", ErrUnreadable)
		}
		body = raw[skip:]
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrUnreadable)
	}
	return DecodeText(string(body))
}

// DecodeText extracts the tag identifier from a decoded card string.
func DecodeText(s string) (string, error) {
	tag, _, _ := strings.Cut(s, "|")
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrUnreadable)
	}
	return tag, nil
}
