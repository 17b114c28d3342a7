// Package phone validates and normalizes Canadian phone numbers.
package phone

import (
	"fmt"
	"strings"

	"propsheet-service/internal/domain"
)

// canadianAreaCodes lists the geographic and non-geographic NPAs assigned to Canada.
var canadianAreaCodes = map[string]struct{}{}

func init() {
	for _, npa := range strings.Fields(`
		204 226 236 249 250 257 263 289 306 343 354 365 367 368 382 387
		403 416 418 428 431 437 438 450 460 468 474 506 514 519 548 579
		581 584 587 600 604 613 639 647 672 683 705 709 742 753 778 780
		782 807 819 825 867 873 879 902 905 942`) {
		canadianAreaCodes[npa] = struct{}{}
	}
}

// Normalize validates raw against the Canadian numbering plan and returns it in
// E.164 form (+1NXXNXXXXXX). Normalizing an already normalized number is a no-op.
func Normalize(raw string) (string, error) {
	digits, err := digitsOf(raw)
	if err != nil {
		return "", err
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", fmt.Errorf("%w: expected 10 digits", domain.ErrInvalidPhone)
	}
	if _, ok := canadianAreaCodes[digits[:3]]; !ok {
		return "", fmt.Errorf("%w: area code %s is not Canadian", domain.ErrInvalidPhone, digits[:3])
	}
	if digits[3] < '2' {
		return "", fmt.Errorf("%w: exchange must not start with 0 or 1", domain.ErrInvalidPhone)
	}
	return "+1" + digits, nil
}

// Valid reports whether raw is an acceptable Canadian number.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

func digitsOf(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidPhone)
	}
	if strings.HasPrefix(raw, "+") && !strings.HasPrefix(raw, "+1") {
		return "", fmt.Errorf("%w: only +1 numbers are accepted", domain.ErrInvalidPhone)
	}

	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return "", fmt.Errorf("%w: unexpected character %q", domain.ErrInvalidPhone, r)
		}
	}
	return b.String(), nil
}
