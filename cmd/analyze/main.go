// Command analyze prints quick, human-readable summaries of the position
// files in the project's positions directory (or the files and directories
// given as arguments). It shows the side to move, piece counts, check,
// checkmate and stalemate, and a sample of the legal moves.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/wricardo/xiangqi/game/positions"
)

// maxListedMoves bounds how many legal moves are printed per position
const maxListedMoves = 5

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"positions"}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", arg, err)
			os.Exit(1)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := positions.Glob(arg)
		if err != nil {
			fmt.Printf("Error listing %s: %v\n", arg, err)
			os.Exit(1)
		}
		files = append(files, matches...)
	}

	failed := false
	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", file)
		if err := analyzeFile(file, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func analyzeFile(path string, w io.Writer) error {
	f, err := positions.Load(path)
	if err != nil {
		return err
	}
	side, err := f.Side()
	if err != nil {
		return err
	}
	rules, err := f.Rules()
	if err != nil {
		return err
	}
	a, err := f.Analyze()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Name: %s\n", f.Name)
	if f.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", f.Description)
	}
	fmt.Fprintf(w, "To Move: %s\n", side)
	fmt.Fprintf(w, "Flying General: %s\n", rules.FlyingGeneral)
	fmt.Fprintf(w, "Pieces: red %d, black %d\n", a.RedPieces, a.BlackPieces)

	switch {
	case a.Checkmate:
		fmt.Fprintf(w, "⚠️  CHECKMATE: %s has no legal move while in check\n", side)
	case a.Stalemate:
		fmt.Fprintf(w, "⚠️  STALEMATE: %s has no legal move and loses\n", side)
	case a.InCheck:
		fmt.Fprintf(w, "⚠️  CHECK: %s must answer the check\n", side)
	default:
		fmt.Fprintf(w, "✅ %s is not in check\n", side)
	}
	if a.GeneralsFacing {
		fmt.Fprintf(w, "⚠️  Generals face each other on an open file\n")
	}

	fmt.Fprintf(w, "Legal Moves: %d\n", len(a.LegalMoves))
	for i, m := range a.LegalMoves {
		if i == maxListedMoves {
			fmt.Fprintf(w, "   ... and %d more\n", len(a.LegalMoves)-maxListedMoves)
			break
		}
		fmt.Fprintf(w, "   %s\n", m)
	}
	return nil
}
