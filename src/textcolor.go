package direwolf

import "fmt"

// A lightweight reimplementation of Dire Wolf's textcolor.c.
// Level 0 disables color entirely (e.g. output redirected to a file).

type dw_color_e int

const (
	DW_COLOR_INFO    dw_color_e = iota /* black */
	DW_COLOR_ERROR                     /* red */
	DW_COLOR_REC                       /* green */
	DW_COLOR_DECODED                   /* blue */
	DW_COLOR_XMIT                      /* magenta */
	DW_COLOR_DEBUG                     /* dark_green */
)

var _text_color_level int

// ANSI SGR sequences, indexed by dw_color_e.
var _color_seq = []string{
	"\x1b[0m",
	"\x1b[0;31m",
	"\x1b[0;32m",
	"\x1b[0;34m",
	"\x1b[0;35m",
	"\x1b[0;2;32m",
}

func text_color_init(level int) {
	_text_color_level = level
}

func text_color_set(c dw_color_e) {
	if _text_color_level == 0 {
		return
	}

	if int(c) < len(_color_seq) {
		fmt.Print(_color_seq[c])
	}
}

func text_color_term() {
	if _text_color_level > 0 {
		fmt.Print("\x1b[0m")
	}
}
