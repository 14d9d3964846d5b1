package zodiac

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDate = errors.New("invalid birth date")

type MonthDay struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

type Sign struct {
	Name    string   `json:"name"`
	Symbol  string   `json:"symbol"`
	Element string   `json:"element"`
	Start   MonthDay `json:"start"`
	End     MonthDay `json:"end"`
}

// Contains applies the wrap-aware range rule. Capricorn is the only range
// whose start month is after its end month.
func (s Sign) Contains(month, day int) bool {
	return (month == s.Start.Month && day >= s.Start.Day) ||
		(month == s.End.Month && day <= s.End.Day) ||
		(s.Start.Month > s.End.Month && (month > s.Start.Month || month < s.End.Month))
}

var signs = [12]Sign{
	{Name: "Aries", Symbol: "♈", Element: "fire", Start: MonthDay{3, 21}, End: MonthDay{4, 19}},
	{Name: "Taurus", Symbol: "♉", Element: "earth", Start: MonthDay{4, 20}, End: MonthDay{5, 20}},
	{Name: "Gemini", Symbol: "♊", Element: "air", Start: MonthDay{5, 21}, End: MonthDay{6, 20}},
	{Name: "Cancer", Symbol: "♋", Element: "water", Start: MonthDay{6, 21}, End: MonthDay{7, 22}},
	{Name: "Leo", Symbol: "♌", Element: "fire", Start: MonthDay{7, 23}, End: MonthDay{8, 22}},
	{Name: "Virgo", Symbol: "♍", Element: "earth", Start: MonthDay{8, 23}, End: MonthDay{9, 22}},
	{Name: "Libra", Symbol: "♎", Element: "air", Start: MonthDay{9, 23}, End: MonthDay{10, 22}},
	{Name: "Scorpio", Symbol: "♏", Element: "water", Start: MonthDay{10, 23}, End: MonthDay{11, 21}},
	{Name: "Sagittarius", Symbol: "♐", Element: "fire", Start: MonthDay{11, 22}, End: MonthDay{12, 21}},
	{Name: "Capricorn", Symbol: "♑", Element: "earth", Start: MonthDay{12, 22}, End: MonthDay{1, 19}},
	{Name: "Aquarius", Symbol: "♒", Element: "air", Start: MonthDay{1, 20}, End: MonthDay{2, 18}},
	{Name: "Pisces", Symbol: "♓", Element: "water", Start: MonthDay{2, 19}, End: MonthDay{3, 20}},
}

var daysInMonth = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// byDate[month][day] holds the index into signs plus one; zero means no match.
var byDate [13][32]uint8

func init() {
	for m := 1; m <= 12; m++ {
		for d := 1; d <= 31; d++ {
			if i, ok := scan(m, d); ok {
				byDate[m][d] = uint8(i + 1)
			}
		}
	}
}

func scan(month, day int) (int, bool) {
	for i, s := range signs {
		if s.Contains(month, day) {
			return i, true
		}
	}
	return 0, false
}

// Signs returns the fixed table in zodiac order starting at Aries.
func Signs() []Sign {
	out := make([]Sign, len(signs))
	copy(out, signs[:])
	return out
}

// Resolve maps a month/day to its sign. It does not check the calendar;
// callers validate input with ValidateDate first.
func Resolve(month, day int) (Sign, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Sign{}, false
	}
	i := byDate[month][day]
	if i == 0 {
		return Sign{}, false
	}
	return signs[i-1], true
}

// ValidateDate accepts any real calendar day, including February 29.
func ValidateDate(month, day int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if day < 1 || day > daysInMonth[month] {
		return fmt.Errorf("%w: day %d for month %d", ErrInvalidDate, day, month)
	}
	return nil
}

func ResolveDate(month, day int) (Sign, error) {
	if err := ValidateDate(month, day); err != nil {
		return Sign{}, err
	}
	s, ok := Resolve(month, day)
	if !ok {
		return Sign{}, fmt.Errorf("%w: no sign for %02d-%02d", ErrInvalidDate, month, day)
	}
	return s, nil
}

// Lookup finds a sign by name, case-insensitively.
func Lookup(name string) (Sign, bool) {
	name = strings.TrimSpace(name)
	for _, s := range signs {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Sign{}, false
}
