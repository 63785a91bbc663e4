package codec

import (
	"bytes"
	"compress/gzip"
	"io"
)

// IsGzip — эвристика по первым трём байтам (magic 1f 8b + метод deflate 08).
// Протокол сжатие не объявляет, поэтому смотрим на сами данные.
func IsGzip(b []byte) bool {
	return len(b) > 2 && b[0] == 0x1f && b[1] == 0x8b && b[2] == 0x08
}

func Gunzip(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// Gzip — обратная операция; нужна в основном тестам и фейковым серверам.
func Gzip(b []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write(b)
	_ = zw.Close()
	return buf.Bytes()
}
