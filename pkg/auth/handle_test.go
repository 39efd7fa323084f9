package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleBase(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{email: "John.Doe@example.com", want: "johndoe"},
		{email: "  a_b-c+1@x.io ", want: "abc1"},
		{email: "averyveryverylongname@x.io", want: "averyveryv"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got, err := HandleBase(tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleBase_FallsBackWhenNothingUsable(t *testing.T) {
	got, err := HandleBase("._-+@example.com")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user[0-9a-f]{4}$`), got)
}

func TestHandleCandidate_SuffixLength(t *testing.T) {
	first, err := HandleCandidate("jane", 0)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^jane_[0-9a-f]{4}$`), first)

	later, err := HandleCandidate("jane", 3)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^jane_[0-9a-f]{6}$`), later)
}

func TestFallbackHandle(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^u_[0-9a-f]{16}$`), FallbackHandle())
}
