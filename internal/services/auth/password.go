// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	_ "embed"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed common_passwords.txt
var commonPasswordsList string

var commonPasswords = loadCommonPasswords(commonPasswordsList)

func loadCommonPasswords(list string) map[string]struct{} {
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(list))
	for scanner.Scan() {
		if p := strings.ToLower(strings.TrimSpace(scanner.Text())); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// Password violation codes. The i18n message ID is "password_" + code.
const (
	ViolationTooShort   = "too_short"
	ViolationNumeric    = "entirely_numeric"
	ViolationCommon     = "common"
	ViolationSimilar    = "too_similar"
	ViolationMismatch   = "mismatch"
	similarityThreshold = 0.7
)

// PasswordValidator checks new passwords.
type PasswordValidator struct {
	MinLength            int
	CheckCommonPasswords bool
	CheckUserSimilarity  bool
}

// DefaultPasswordValidator returns the validator used for accounts.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:            8,
		CheckCommonPasswords: true,
		CheckUserSimilarity:  true,
	}
}

// PasswordError lists the violated rules.
type PasswordError struct {
	Violations []string
}

func (e *PasswordError) Error() string {
	if len(e.Violations) == 0 {
		return "password validation failed"
	}
	return "password rejected: " + strings.Join(e.Violations, ", ")
}

// MessageIDs returns the i18n message IDs for the violations.
func (e *PasswordError) MessageIDs() []string {
	ids := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		ids[i] = "password_" + v
	}
	return ids
}

// Validate returns a *PasswordError when password breaks any rule, nil otherwise.
// userAttributes are values the password must not resemble, like username and email.
func (v *PasswordValidator) Validate(password string, userAttributes ...string) error {
	var violations []string

	if utf8.RuneCountInString(password) < v.MinLength {
		violations = append(violations, ViolationTooShort)
	}
	if isEntirelyNumeric(password) {
		violations = append(violations, ViolationNumeric)
	}
	if v.CheckCommonPasswords {
		if _, common := commonPasswords[strings.ToLower(password)]; common {
			violations = append(violations, ViolationCommon)
		}
	}
	if v.CheckUserSimilarity && resemblesAny(password, userAttributes) {
		violations = append(violations, ViolationSimilar)
	}

	if len(violations) > 0 {
		return &PasswordError{Violations: violations}
	}
	return nil
}

func isEntirelyNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// resemblesAny compares the password with each attribute and, for email
// addresses, with the local part.
func resemblesAny(password string, attributes []string) bool {
	p := strings.ToLower(password)
	for _, attr := range attributes {
		a := strings.ToLower(attr)
		if local, _, ok := strings.Cut(a, "@"); ok {
			a = local
		}
		if len(a) < 3 {
			continue
		}
		if strings.Contains(p, a) || strings.Contains(a, p) || lcsRatio(p, a) > similarityThreshold {
			return true
		}
	}
	return false
}

// lcsRatio is the longest common subsequence length over the longer length.
func lcsRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}

	return float64(prev[len(b)]) / float64(max(len(a), len(b)))
}
