package display

import (
	"fmt"
	"os"

	"github.com/IAmABurntToast/Cell-Count/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if term.Enabled() {
		fmt.Fprint(os.Stdout, term.Magenta)
	}
	fmt.Fprint(os.Stdout, `  ____ _____ _   _    ____                  _
 / ___|  ___| | | |  / ___|___  _   _ _ __ | |_ ___ _ __
| |   | |_  | | | | | |   / _ \| | | | '_ \| __/ _ \ '__|
| |___|  _| | |_| | | |__| (_) | |_| | | | | ||  __/ |
 \____|_|    \___/   \____\___/ \__,_|_| |_|\__\___|_|
`)
	if term.Enabled() {
		fmt.Fprintln(os.Stdout, term.NC)
	}
}
