package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

const (
	minConfirmationCode = 1000
	maxConfirmationCode = 9999
)

// CodeGenerator produces confirmation codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodeGenerator draws uniformly from 1000-9999 using crypto/rand.
type RandomCodeGenerator struct{}

func (RandomCodeGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxConfirmationCode-minConfirmationCode+1))
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+minConfirmationCode), nil
}

// codesMatch is an exact comparison in constant time. An empty stored code never matches.
func codesMatch(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
