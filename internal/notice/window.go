package notice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"renewdesk/internal/model"
)

// Configuration keys read from the remote settings.
const (
	KeyWindowStart = "whatsapp_horario_inicio"
	KeyWindowEnd   = "whatsapp_horario_fim"
	KeyWindowDays  = "whatsapp_dias_funcionamento"
	KeyInterval    = "whatsapp_intervalo_mensagens"
)

// Weekdays in the order used by the settings, Monday first.
var Weekdays = []string{"segunda", "terca", "quarta", "quinta", "sexta", "sabado", "domingo"}

// Window is the business period in which notices may be sent.
type Window struct {
	start, end int // minutes since midnight, inclusive
	days       [7]bool
	always     bool
}

// AlwaysOpen allows sending at any time.
func AlwaysOpen() Window {
	return Window{always: true}
}

// ParseWindow builds a window from "HH:MM" bounds and weekday names.
func ParseWindow(start, end string, days []string) (Window, error) {
	var w Window
	var err error
	if w.start, err = parseClock(start); err != nil {
		return Window{}, fmt.Errorf("parse start: %w", err)
	}
	if w.end, err = parseClock(end); err != nil {
		return Window{}, fmt.Errorf("parse end: %w", err)
	}
	for _, d := range days {
		idx := weekdayIndex(d)
		if idx < 0 {
			return Window{}, fmt.Errorf("unknown weekday %q", d)
		}
		w.days[idx] = true
	}
	return w, nil
}

// Allows reports whether t falls on an enabled day within the clock bounds.
func (w Window) Allows(t time.Time) bool {
	if w.always {
		return true
	}
	// time.Weekday starts on Sunday.
	idx := (int(t.Weekday()) + 6) % 7
	if !w.days[idx] {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return w.start <= minute && minute <= w.end
}

// Settings is the dispatch configuration resolved from the remote settings.
type Settings struct {
	Window   Window
	Interval time.Duration
}

// Defaults apply when a remote setting is absent.
type Defaults struct {
	Start    string
	End      string
	Days     []string
	Interval time.Duration
}

// ResolveSettings overlays the remote settings on def. An unreadable window
// is reported alongside an always-open window, so a bad setting never blocks
// sending.
func ResolveSettings(entries []model.ConfigEntry, def Defaults) (Settings, error) {
	start, end, days := def.Start, def.End, def.Days
	out := Settings{Interval: def.Interval}
	for _, e := range entries {
		switch e.Key {
		case KeyWindowStart:
			start, _ = e.Value.(string)
		case KeyWindowEnd:
			end, _ = e.Value.(string)
		case KeyWindowDays:
			days = asStrings(e.Value)
		case KeyInterval:
			if secs, ok := asFloat(e.Value); ok && secs >= 0 {
				out.Interval = time.Duration(secs * float64(time.Second))
			}
		}
	}

	w, err := ParseWindow(start, end, days)
	if err != nil {
		out.Window = AlwaysOpen()
		return out, err
	}
	out.Window = w
	return out, nil
}

func parseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func weekdayIndex(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("ç", "c", "á", "a").Replace(name)
	for i, d := range Weekdays {
		if d == name {
			return i
		}
	}
	return -1
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func asStrings(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		return strings.Split(s, ",")
	}
	return nil
}
