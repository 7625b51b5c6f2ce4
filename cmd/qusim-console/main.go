// qusim-console is an interactive terminal client for the simulator
// daemon: it allocates a register, applies gates from a picker menu and
// shows the live state vector.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/quforge/qusim/client"
	"github.com/quforge/qusim/server"
)

func main() {
	addr := flag.String("addr", server.DefaultAddr, "daemon address (host:port)")
	qubits := flag.Int("qubits", 3, "register width in qubits")
	id := flag.String("id", "qusim-console", "client id for daemon registration")
	flag.Parse()

	// the TUI owns the terminal, keep library logging out of the way
	log.SetLevel(log.ErrorLevel)

	cl, err := client.Dial(*addr, *id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach daemon at %s: %v\n", *addr, err)
		fmt.Fprintln(os.Stderr, "start one with: qsimd -addr", *addr)
		os.Exit(1)
	}
	defer cl.Close()

	handle, err := cl.Allocate(*qubits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "register allocation failed: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(cl, handle, *qubits), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		os.Exit(1)
	}
}
