package auth

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestHashOTP_Deterministic(t *testing.T) {
	assert.Equal(t, HashOTP("123456"), HashOTP("123456"))
	assert.NotEqual(t, HashOTP("123456"), HashOTP("123457"))
	assert.Len(t, HashOTP("123456"), 64)
}

func TestVerifyOTP(t *testing.T) {
	stored := HashOTP("482913")

	tests := []struct {
		name    string
		entered string
		stored  string
		want    bool
	}{
		{name: "correct code", entered: "482913", stored: stored, want: true},
		{name: "wrong code", entered: "482914", stored: stored, want: false},
		{name: "empty entered", entered: "", stored: stored, want: false},
		{name: "empty stored", entered: "482913", stored: "", want: false},
		{name: "stored length mismatch", entered: "482913", stored: stored[:10], want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyOTP(tt.entered, tt.stored))
		})
	}
}
