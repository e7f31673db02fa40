package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "status":
		statusCmd(os.Args[2:])
	case "mode":
		modeCmd(os.Args[2:])
	case "save", "pause", "resume":
		commandCmd(os.Args[1], os.Args[2:])
	case "db":
		dbCmd(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin status|mode <anarchy|democracy>|save|pause|resume [-url U] [-token T]")
	fmt.Fprintln(os.Stderr, "       admin db inputs|saves|sessions|users [-data D] [-db PATH] [-user U] [-limit N]")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
