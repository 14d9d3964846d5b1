package zodiac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEveryValidDateHasExactlyOneSign(t *testing.T) {
	for m := 1; m <= 12; m++ {
		for d := 1; d <= daysInMonth[m]; d++ {
			require.NoError(t, ValidateDate(m, d))

			got, ok := Resolve(m, d)
			require.Truef(t, ok, "no sign for %02d-%02d", m, d)
			assert.Truef(t, got.Contains(m, d), "%s does not contain %02d-%02d", got.Name, m, d)

			matches := 0
			for _, s := range signs {
				if s.Contains(m, d) {
					matches++
				}
			}
			assert.Equalf(t, 1, matches, "overlapping signs for %02d-%02d", m, d)
		}
	}
}

func TestResolveBoundaries(t *testing.T) {
	tests := []struct {
		month, day int
		want       string
	}{
		{5, 15, "Taurus"},
		{12, 21, "Sagittarius"},
		{12, 22, "Capricorn"},
		{12, 31, "Capricorn"},
		{1, 1, "Capricorn"},
		{1, 19, "Capricorn"},
		{1, 20, "Aquarius"},
		{2, 29, "Pisces"},
		{3, 20, "Pisces"},
		{3, 21, "Aries"},
	}

	for _, tc := range tests {
		got, err := ResolveDate(tc.month, tc.day)
		require.NoError(t, err)
		assert.Equalf(t, tc.want, got.Name, "%02d-%02d", tc.month, tc.day)
	}
}

func TestResolveMatchesLinearScan(t *testing.T) {
	for m := 1; m <= 12; m++ {
		for d := 1; d <= 31; d++ {
			i, ok := scan(m, d)
			got, gotOK := Resolve(m, d)
			require.Equal(t, ok, gotOK)
			if ok {
				assert.Equal(t, signs[i], got)
			}
		}
	}
}

func TestValidateDateRejectsImpossibleDays(t *testing.T) {
	cases := [][2]int{{0, 1}, {13, 1}, {2, 30}, {4, 31}, {6, 0}, {11, 31}}
	for _, c := range cases {
		err := ValidateDate(c[0], c[1])
		assert.Truef(t, errors.Is(err, ErrInvalidDate), "%v: expected ErrInvalidDate, got %v", c, err)

		_, err = ResolveDate(c[0], c[1])
		assert.ErrorIs(t, err, ErrInvalidDate)
	}
}

func TestResolveOutOfRangeIsNotFound(t *testing.T) {
	_, ok := Resolve(0, 10)
	assert.False(t, ok)
	_, ok = Resolve(7, 40)
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	s, ok := Lookup(" capricorn ")
	require.True(t, ok)
	assert.Equal(t, "Capricorn", s.Name)

	_, ok = Lookup("Ophiuchus")
	assert.False(t, ok)
	assert.Len(t, Signs(), 12)
}
