package service

import (
	"crypto/rand"
	"math/big"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

// generateCode draws an 8-character code uniformly from [A-Z0-9].
func generateCode() string {
	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, max)
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code)
}
