package devserver

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	urlColor  = color.New(color.FgCyan, color.Bold)
	hintColor = color.New(color.FgYellow)
	stopColor = color.New(color.FgRed)
)

func (s *Server) printBanner(url string) {
	name := s.cfg.Name
	if name == "" {
		name = "Server"
	}
	fmt.Fprintf(s.out, "🚀 %s is running at %s\n", name, urlColor.Sprint(url))
	for _, hint := range s.cfg.Hints {
		hintColor.Fprintln(s.out, hint)
	}
	stopColor.Fprintln(s.out, "🛑 Press Ctrl+C to stop the server")
}

func (s *Server) printFarewell() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "👋 Server stopped!")
}
