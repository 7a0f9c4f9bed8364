package topicname

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAcceptsAlphanumericUnderscorePercent(t *testing.T) {
	n, err := Parse("orders_v2%beta")
	assert.NoError(t, err)
	assert.Equal(t, "orders_v2%beta", n.String())
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsTooLong(t *testing.T) {
	_, err := Parse(strings.Repeat("a", MaxLength+1))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseAcceptsExactlyMaxLength(t *testing.T) {
	name := strings.Repeat("a", MaxLength)
	n, err := Parse(name)
	assert.NoError(t, err)
	assert.Equal(t, name, n.String())
}

func TestParseRejectsDisallowedCharacters(t *testing.T) {
	for _, bad := range []string{"orders/v2", "orders v2", "orders.v2", "orders#v2"} {
		_, err := Parse(bad)
		assert.ErrorIsf(t, err, ErrInvalid, "expected %q to be rejected", bad)
	}
}
