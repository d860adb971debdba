package main

import (
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/workspace"
)

func printWorkspaceUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  winsrv workspace save <name>")
	fmt.Fprintln(w, "  winsrv workspace restore <name>")
	fmt.Fprintln(w, "  winsrv workspace list")
	fmt.Fprintln(w, "  winsrv workspace delete <name>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Workspaces record window geometry by id, so a restore applies to the")
	fmt.Fprintln(w, "daemon session the workspace was saved in.")
}

func runWorkspace(args []string) int {
	if len(args) == 0 {
		printWorkspaceUsage(os.Stderr)
		return 2
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "help", "-h", "--help":
		printWorkspaceUsage(os.Stdout)
		return 0
	case "list":
		if len(rest) != 0 {
			fmt.Fprintln(os.Stderr, "list takes no arguments")
			return 2
		}
		names, err := workspace.List()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return 0
	case "save", "restore", "delete":
	default:
		fmt.Fprintf(os.Stderr, "Unknown workspace command: %s\n\n", sub)
		printWorkspaceUsage(os.Stderr)
		return 2
	}

	if len(rest) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: winsrv workspace %s <name>\n", sub)
		return 2
	}
	name := rest[0]
	if err := workspace.ValidateName(name); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	switch sub {
	case "delete":
		if err := workspace.Delete(name); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case "save":
		client := ipc.NewClient()
		defer client.Close()
		wins, err := client.ListWindows()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := workspace.Write(workspace.Capture(name, wins)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("saved %d windows to %s\n", len(wins), name)
		return 0

	default: // restore
		s, err := workspace.Read(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		client := ipc.NewClient()
		defer client.Close()
		res, err := workspace.Restore(client, s)
		fmt.Printf("restored %d, unchanged %d, missing %d\n", res.Restored, res.Unchanged, res.Missing)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
}
