package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ibmterm/emucore/internal/monitor"
	"github.com/ibmterm/emucore/session"
	"github.com/ibmterm/emucore/ui"
)

func main() {
	host := flag.String("host", "", "mainframe/midrange host to connect to")
	port := flag.Uint("port", 23, "telnet port")
	useTLS := flag.Bool("tls", false, "negotiate TLS before telnet")
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification")
	mode := flag.String("mode", "auto", "protocol: auto, tn3270, tn5250, nvt")
	flag.Parse()

	if *host == "" {
		fmt.Fprintln(os.Stderr, "tn3270demo: -host is required")
		os.Exit(1)
	}

	cfg := session.DefaultConfig()
	cfg.Host = *host
	cfg.Port = uint16(*port)
	cfg.TLS = *useTLS
	cfg.TLSInsecure = *insecure
	cfg.AutoReconnect = true
	cfg.Sink = monitor.Func(func(component, kind, detail string) {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", component, kind, detail)
	})

	switch *mode {
	case "tn3270":
		cfg.ProtocolMode = session.ModeTN3270
	case "tn5250":
		cfg.ProtocolMode = session.ModeTN5250
	case "nvt":
		cfg.ProtocolMode = session.ModeNVT
	default:
		cfg.ProtocolMode = session.AutoDetect
	}

	ctrl := session.New(cfg)
	ctrl.ConnectAsync()
	defer ctrl.Disconnect()

	program := tea.NewProgram(ui.New(ctrl), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
