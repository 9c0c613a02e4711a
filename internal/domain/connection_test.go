package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection(t *testing.T) {
	conn, err := NewConnection("c1", "T1", "U1")
	require.NoError(t, err)
	assert.Equal(t, Connection{ConnectionID: "c1", TeamCode: "T1", UserID: "U1"}, conn)
}

func TestNewConnectionValidation(t *testing.T) {
	for _, args := range [][3]string{
		{"", "T1", "U1"},
		{"c1", "", "U1"},
		{"c1", "T1", ""},
	} {
		_, err := NewConnection(args[0], args[1], args[2])
		assert.ErrorIs(t, err, ErrValidation, args)
	}
}
