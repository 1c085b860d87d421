// Package format renders dates, amounts and phone numbers for pt-BR display.
// Every helper fails soft: bad input yields an empty or zero rendering, never
// an error.
package format

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"renewdesk/internal/lifecycle"
)

const (
	DateLayout     = "02/01/2006"
	DateTimeLayout = "02/01/2006 15:04"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Date renders an ISO date or timestamp as dd/mm/yyyy.
func Date(raw string, loc *time.Location) string {
	return layout(raw, loc, DateLayout)
}

// DateTime renders an ISO timestamp as dd/mm/yyyy hh:mm.
func DateTime(raw string, loc *time.Location) string {
	return layout(raw, loc, DateTimeLayout)
}

func layout(raw string, loc *time.Location, l string) string {
	t, ok := lifecycle.ParseDate(raw, loc)
	if !ok {
		return ""
	}
	return t.In(loc).Format(l)
}

// Relative describes raw relative to now, e.g. "há 3 dias" or "em 2 horas".
func Relative(raw string, now time.Time) string {
	t, ok := lifecycle.ParseDate(raw, now.Location())
	if !ok {
		return ""
	}
	d := t.Sub(now)
	future := d > 0
	if d < 0 {
		d = -d
	}

	var text string
	switch {
	case d < 45*time.Second:
		text = "menos de um minuto"
	case d < 90*time.Second:
		text = "1 minuto"
	case d < 45*time.Minute:
		text = plural(int(d.Round(time.Minute)/time.Minute), "minuto", "minutos")
	case d < 90*time.Minute:
		text = "cerca de 1 hora"
	case d < 24*time.Hour:
		text = "cerca de " + plural(int(d.Round(time.Hour)/time.Hour), "hora", "horas")
	case d < 30*24*time.Hour:
		text = plural(int(d.Round(24*time.Hour)/(24*time.Hour)), "dia", "dias")
	case d < 365*24*time.Hour:
		text = plural(int(d/(30*24*time.Hour)), "mês", "meses")
	default:
		text = plural(int(d/(365*24*time.Hour)), "ano", "anos")
	}
	if future {
		return "em " + text
	}
	return "há " + text
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

// Currency renders v as Brazilian reais. Nil renders as R$ 0,00.
func Currency(v *float64) string {
	var amount float64
	if v != nil {
		amount = *v
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "R$ " + Number(amount, 2)
}

// Number renders v with pt-BR separators and exactly decimals fraction digits.
func Number(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return printer.Sprint(number.Decimal(v, number.Scale(decimals)))
}

// ParseNumber reads a pt-BR formatted number such as "1.234,56" or "R$ 35,00".
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '.' {
			return -1
		}
		if r == ',' {
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Digits strips every non-digit rune.
func Digits(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// Phone masks 10 or 11 digit Brazilian numbers; other input is returned as is.
func Phone(raw string) string {
	d := Digits(raw)
	switch len(d) {
	case 11:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	case 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	}
	return raw
}

// ValidPhone reports whether raw has 10 or 11 digits.
func ValidPhone(raw string) bool {
	n := len(Digits(raw))
	return n == 10 || n == 11
}

// WhatsAppNumber normalises raw to an international number with the Brazilian
// country code: 11 digit numbers starting with 11 and numbers without 55 get
// 55 prefixed, bare 10 digit numbers are assumed to be in area 11.
func WhatsAppNumber(raw string) (string, bool) {
	d := Digits(raw)
	if d == "" {
		return "", false
	}
	switch {
	case len(d) == 11 && strings.HasPrefix(d, "11"):
		d = "55" + d
	case len(d) == 10:
		d = "5511" + d
	case !strings.HasPrefix(d, "55"):
		d = "55" + d
	}
	return d, true
}

// Initials returns up to two upper-case initials of name.
func Initials(name string) string {
	var b strings.Builder
	n := 0
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		b.WriteString(strings.ToUpper(string(r)))
		n++
		if n == 2 {
			break
		}
	}
	return b.String()
}
