package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ru-RU groups with a no-break space; compare on plain spaces.
func plain(s string) string {
	return strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(s)
}

func TestInt(t *testing.T) {
	assert.Equal(t, "1 234 567", plain(Int(1234567)))
	assert.Equal(t, "3", plain(Int(2.5)))
	assert.Equal(t, "0", plain(Int(0)))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1 234,50", plain(Money(1234.5)))
	assert.Equal(t, "65,50 KZT", plain(MoneyWith(65.5, "KZT")))
}

func TestPct(t *testing.T) {
	assert.Equal(t, "1.67%", Pct(50.0/3000))
	assert.Equal(t, "0.00%", Pct(0))
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, Dash, OrDash(0, 0, Money))
	assert.Equal(t, "1,31", plain(OrDash(50, 1.31, Money)))
}
