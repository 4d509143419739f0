package lib

import (
	"fmt"
	"io"
	"os"
)

// Exit prints the error and exits the program with code 1.
// Errors built with errors.Join are printed one per line.
func Exit(err error) {
	Report(os.Stderr, err)
	os.Exit(1)
}

// Report writes err to w the way Exit does, without exiting.
func Report(w io.Writer, err error) {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		fmt.Fprintln(w, "Error:", err)
		return
	}
	errs := joined.Unwrap()
	if len(errs) == 1 {
		fmt.Fprintln(w, "Error:", errs[0])
		return
	}
	fmt.Fprintf(w, "Error: %d problems\n", len(errs))
	for _, e := range errs {
		fmt.Fprintln(w, "  -", e)
	}
}
