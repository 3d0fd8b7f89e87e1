/* AX.25 connected mode data link engine for KISS TNCs */
package main

import (
	direwolf "github.com/wb2osz/direwolf-sub001/src"
)

func main() {
	direwolf.DirewolfDlMain()
}
