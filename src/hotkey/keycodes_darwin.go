//go:build darwin

package hotkey

// macOS virtual keycodes (kVK_*). Letter and digit codes follow the ANSI
// keyboard layout, not the alphabet.
var modifierCodes = map[string][]uint16{
	"ctrl":  {59, 62},
	"alt":   {58, 61},
	"shift": {56, 60},
	"cmd":   {55, 54},
}

var specialCodes = map[string][]uint16{
	"space":     {49},
	"enter":     {36},
	"return":    {36},
	"esc":       {53},
	"escape":    {53},
	"tab":       {48},
	"backspace": {51},
	"delete":    {117},
	"del":       {117},
	"home":      {115},
	"end":       {119},
	"pageup":    {116},
	"pagedown":  {121},
	"left":      {123},
	"right":     {124},
	"down":      {125},
	"up":        {126},
}

var letters = [26]uint16{
	0, 11, 8, 2, 14, 3, 5, 4, 34, 38, 40, 37, 46, // a-m
	45, 31, 35, 12, 15, 1, 17, 32, 9, 13, 7, 16, 6, // n-z
}

var digits = [10]uint16{29, 18, 19, 20, 21, 23, 22, 26, 28, 25}

var functionKeys = [20]uint16{
	122, 120, 99, 118, 96, 97, 98, 100, 101, 109,
	103, 111, 105, 107, 113, 106, 64, 79, 80, 90,
}

func letterCode(ch byte) uint16 { return letters[ch-'a'] }

func digitCode(ch byte) uint16 { return digits[ch-'0'] }

func functionCode(n int) (uint16, bool) {
	if n < 1 || n > len(functionKeys) {
		return 0, false
	}
	return functionKeys[n-1], true
}
