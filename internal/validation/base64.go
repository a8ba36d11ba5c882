// Package validation holds the request rules shared by the HTTP DTOs.
package validation

import (
	"encoding/base64"
	"fmt"

	validation "github.com/jellydator/validation"
)

// Base64 accepts standard base64 strings. Empty strings pass so that Required decides.
var Base64 = Base64MaxDecoded(0)

// Base64MaxDecoded is Base64 with an upper bound on the decoded size. A bound of zero
// means unbounded.
func Base64MaxDecoded(maxBytes int) validation.Rule {
	return validation.By(func(value any) error {
		s, ok := value.(string)
		if !ok {
			return validation.NewError("validation_base64_type", "must be a string")
		}
		if s == "" {
			return nil
		}
		if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(s)) > maxBytes+2 {
			return validation.NewError("validation_base64_size", fmt.Sprintf("must decode to at most %d bytes", maxBytes))
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return validation.NewError("validation_base64", "must be valid base64-encoded data")
		}
		if maxBytes > 0 && len(decoded) > maxBytes {
			return validation.NewError("validation_base64_size", fmt.Sprintf("must decode to at most %d bytes", maxBytes))
		}
		return nil
	})
}
