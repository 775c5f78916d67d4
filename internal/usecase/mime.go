package usecase

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

// defaultImageMIME is assumed when neither the caller nor content sniffing can tell.
const defaultImageMIME = "image/jpeg"

// resolveImageMIME prefers the declared type, then sniffs the bytes. Anything
// that is not an image is rejected before a provider is ever contacted.
func resolveImageMIME(data []byte, declared string) (string, error) {
	if mt := baseType(declared); mt != "" {
		if !strings.HasPrefix(mt, "image/") {
			return "", domain.Errorf(domain.KindInvalidRequest, "mime type %q is not an image", mt)
		}
		return mt, nil
	}
	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") {
		return defaultImageMIME, nil
	}
	mt := baseType(detected.String())
	if !strings.HasPrefix(mt, "image/") {
		return "", domain.Errorf(domain.KindInvalidRequest, "content looks like %q, not an image", mt)
	}
	return mt, nil
}

func baseType(s string) string {
	mt, _, _ := strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
