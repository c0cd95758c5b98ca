package asset

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DataImagePrefix は埋め込み画像の data URI の接頭辞です。
	DataImagePrefix = "data:image/"
	// DefaultContentType は Content-Type が不明な場合の既定値です。
	DefaultContentType = "image/png"
)

// ErrInvalidDataURI は data URI として解釈できない場合に返されます。
var ErrInvalidDataURI = errors.New("invalid data URI")

var dataURIRegex = regexp.MustCompile(`^data:([a-zA-Z0-9]+/[a-zA-Z0-9\-.+]+);base64,(.+)$`)

// IsDataURI は埋め込み画像の data URI かどうかを返します。
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, DataImagePrefix)
}

// IsRemote は http(s) の参照かどうかを返します。
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http")
}

// IsAcceptedReference は画像モデルが返した参照として受け入れ可能かどうかを返します。
func IsAcceptedReference(ref string) bool {
	return IsRemote(ref) || IsDataURI(ref)
}

// EncodeDataURI はバイト列を data URI に変換します。
func EncodeDataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURI は data URI を MIME タイプとバイト列に分解します。
func DecodeDataURI(uri string) (string, []byte, error) {
	m := dataURIRegex.FindStringSubmatch(uri)
	if m == nil {
		return "", nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return m[1], data, nil
}

// ExtensionFor は MIME タイプに対応するファイル拡張子を返します。
func ExtensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	default:
		return ".png"
	}
}
