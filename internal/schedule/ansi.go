package schedule

import "fmt"

// Ansi wraps v in an ANSI SGR colour escape.
func Ansi(v any, colour int) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", colour, v)
}

// Red is the SGR code used to highlight schedule values.
const Red = 31

func paint(v any, colour bool) string {
	if !colour {
		return fmt.Sprint(v)
	}
	return Ansi(v, Red)
}
