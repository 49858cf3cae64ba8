// Package auth checks the shared fulfillment code.
package auth

import "crypto/subtle"

// SharedCode authorizes callers presenting one fixed code.
type SharedCode struct {
	required []byte
}

func NewSharedCode(required string) *SharedCode {
	return &SharedCode{required: []byte(required)}
}

// Check compares code in constant time.
func (s *SharedCode) Check(code string) bool {
	return subtle.ConstantTimeCompare([]byte(code), s.required) == 1
}
