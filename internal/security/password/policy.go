package password

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultMinLength es el largo mínimo de registro.
const DefaultMinLength = 6

type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPolicy sólo exige largo mínimo.
var DefaultPolicy = Policy{MinLength: DefaultMinLength}

func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	return len(reasons) == 0, reasons
}

// Check es Validate como error, listo para envolver con ErrInvalidInput.
func (p Policy) Check(s string) error {
	if ok, reasons := p.Validate(s); !ok {
		return fmt.Errorf("password policy: %s", strings.Join(reasons, ","))
	}
	return nil
}
