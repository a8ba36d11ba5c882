package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	t.Run("Success_ClearsEveryBuffer", func(t *testing.T) {
		key := bytes.Repeat([]byte{0xAB}, KeySize)
		secret := []byte("restricted-master-secret")

		Zero(key, secret)

		assert.Equal(t, make([]byte, KeySize), key)
		assert.Equal(t, make([]byte, len(secret)), secret)
	})

	t.Run("Success_OnlyTheGivenWindowOfASharedArray", func(t *testing.T) {
		backing := []byte{1, 2, 3, 4, 5, 6}

		Zero(backing[2:4])

		assert.Equal(t, []byte{1, 2, 0, 0, 5, 6}, backing)
	})

	t.Run("Success_NilAndEmptyBuffers", func(t *testing.T) {
		assert.NotPanics(t, func() { Zero(nil, []byte{}) })
		assert.NotPanics(t, func() { Zero() })
	})
}
