package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

// readSecret prompts for a value without echoing it when stdin is a terminal.
// Piped input falls back to reading a plain line from in.
func readSecret(cmd *cobra.Command, in *bufio.Reader, out io.Writer, prompt string) string {
	if prompt != "" {
		fmt.Fprint(out, prompt)
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && in.Buffered() == 0 && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err == nil {
			return string(secret)
		}
	}
	return readLine(in)
}
