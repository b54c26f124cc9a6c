package checksum

import "errors"

// ErrCOBS indicates a malformed byte-stuffed block.
var ErrCOBS = errors.New("checksum: malformed COBS block")

// COBSMaxEncodedLen returns the worst-case encoded size of n bytes
// (without the trailing delimiter).
func COBSMaxEncodedLen(n int) int {
	return n + n/254 + 1
}

// COBSEncode stuffs src so that it contains no zero byte and appends the
// result to dst. The 0x00 delimiter is not appended.
func COBSEncode(dst, src []byte) []byte {
	codeIdx := len(dst)
	dst = append(dst, 0)
	code := byte(1)
	for _, b := range src {
		if b == 0 {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == 0xff {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeIdx] = code
	return dst
}

// COBSDecode reverses COBSEncode, appending the unstuffed bytes to dst.
// src must not include the delimiter.
func COBSDecode(dst, src []byte) ([]byte, error) {
	if dst == nil {
		dst = make([]byte, 0, len(src))
	}
	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return dst, ErrCOBS
		}
		i++
		end := i + int(code) - 1
		if end > len(src) {
			return dst, ErrCOBS
		}
		for _, b := range src[i:end] {
			if b == 0 {
				return dst, ErrCOBS
			}
		}
		dst = append(dst, src[i:end]...)
		i = end
		if code != 0xff && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
