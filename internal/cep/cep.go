package cep

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Default is the built-in candidate list used when no override is configured.
var Default = []string{
	"01001000", // São Paulo
	"30140071", // Belo Horizonte
	"70040900", // Brasília
	"80010000", // Curitiba
	"59010020", // Natal
}

// Picker selects one index out of n.
type Picker interface {
	Pick(n int) (int, error)
}

// CryptoPicker picks uniformly using crypto/rand so selection is not predictable.
type CryptoPicker struct{}

// Pick returns a uniformly distributed index in [0, n).
func (CryptoPicker) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("pick from %d candidates", n)
	}
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random index: %w", err)
	}
	return int(i.Int64()), nil
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(n int) (int, error)

// Pick calls f(n).
func (f PickerFunc) Pick(n int) (int, error) { return f(n) }

// Choose returns the candidate selected by p.
func Choose(candidates []string, p Picker) (string, error) {
	if len(candidates) == 0 {
		return "", errors.New("empty candidate list")
	}
	i, err := p.Pick(len(candidates))
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(candidates) {
		return "", fmt.Errorf("picker returned index %d out of range [0,%d)", i, len(candidates))
	}
	return candidates[i], nil
}
