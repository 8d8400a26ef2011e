// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRegex     = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	orgNumberRegex = regexp.MustCompile(`^\d{9}$`)
	slugRegex      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStrip      = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(CleanPhone(phone))
}

func CleanPhone(phone string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return r.Replace(phone)
}

// NormalizeOrgNumber strips spaces from a Norwegian organization number.
func NormalizeOrgNumber(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "")
}

// ValidateOrgNumber checks the 9 digit length and the mod11 control digit.
func ValidateOrgNumber(s string) bool {
	s = NormalizeOrgNumber(s)
	if !orgNumberRegex.MatchString(s) {
		return false
	}
	weights := []int{3, 2, 7, 6, 5, 4, 3, 2}
	sum := 0
	for i, w := range weights {
		sum += int(s[i]-'0') * w
	}
	control := 11 - sum%11
	if control == 11 {
		control = 0
	}
	if control == 10 {
		return false
	}
	return control == int(s[8]-'0')
}

func ValidateSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// Slugify lowercases and joins words with dashes. Norwegian letters are
// transliterated.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("æ", "ae", "ø", "o", "å", "a").Replace(s)
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
