//go:build !windows && !darwin

package hotkey

// X11 keysyms, truncated to 16 bits as gohook reports them.
var modifierCodes = map[string][]uint16{
	"ctrl":  {0xffe3, 0xffe4},
	"alt":   {0xffe9, 0xffea},
	"shift": {0xffe1, 0xffe2},
	"cmd":   {0xffeb, 0xffec},
}

var specialCodes = map[string][]uint16{
	"space":     {0x0020},
	"enter":     {0xff0d},
	"return":    {0xff0d},
	"esc":       {0xff1b},
	"escape":    {0xff1b},
	"tab":       {0xff09},
	"backspace": {0xff08},
	"delete":    {0xffff},
	"del":       {0xffff},
	"insert":    {0xff63},
	"home":      {0xff50},
	"end":       {0xff57},
	"pageup":    {0xff55},
	"pagedown":  {0xff56},
	"left":      {0xff51},
	"up":        {0xff52},
	"right":     {0xff53},
	"down":      {0xff54},
}

func letterCode(ch byte) uint16 { return uint16(ch) }

func digitCode(ch byte) uint16 { return uint16(ch) }

func functionCode(n int) (uint16, bool) {
	if n < 1 || n > 24 {
		return 0, false
	}
	return uint16(0xffbe + n - 1), true
}
