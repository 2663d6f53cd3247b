// Command validate checks the position files in the ../positions directory
// (or the directory given as the first argument). It checks:
//   - YAML structure and the presence of a layout
//   - Layout shape and allowed characters (g a e h r c s, either case, and '.')
//   - Piece placement: generals and advisors in their palace, elephants on
//     their own points, soldiers never behind their starting rank
//   - Piece counts: one general per side and no more of a kind than the opening
//   - Side to move and flying-general policy values
//   - Reachability: the side that just moved may not be left in check, and
//     under the prevent policy the generals may not face each other
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/positions"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validatePosition loads and validates a single position file
func validatePosition(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	f, err := positions.Load(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	side, err := f.Side()
	if err != nil {
		result.fail("Invalid turn: %v", err)
	}
	rules, err := f.Rules()
	if err != nil {
		result.fail("Invalid flying_general: %v", err)
	}

	board, err := f.Board()
	if err != nil {
		result.fail("Invalid layout: %v", err)
		return result
	}
	if err := engine.ValidateLayout(board); err != nil {
		result.fail("%v", strings.TrimPrefix(err.Error(), "layout validation: "))
		return result
	}
	if !result.Valid {
		return result
	}

	// The side that just moved cannot have left its own general attacked
	state := engine.NewGameState(board, "", "")
	state.Turn = side
	if rules.IsInCheck(side.Opponent(), state) {
		result.fail("Unreachable: %s is to move but %s is in check", side, side.Opponent())
	}
	if rules.FlyingGeneral != engine.FlyingGeneralPenalize && rules.ViolatesFlyingGeneral(state) {
		result.fail("Unreachable: generals face each other on an open file")
	}
	if !result.Valid {
		return result
	}

	analysis, err := rules.Analyze(board, side)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.info("Layout: %d red and %d black pieces", analysis.RedPieces, analysis.BlackPieces)
	switch {
	case analysis.Checkmate:
		result.info("Status: %s is checkmated", side)
	case analysis.Stalemate:
		result.info("Status: %s is stalemated", side)
	case analysis.InCheck:
		result.info("Status: %s to move, in check, %d legal moves", side, len(analysis.LegalMoves))
	default:
		result.info("Status: %s to move, %d legal moves", side, len(analysis.LegalMoves))
	}

	return result
}

// main scans the positions directory for YAML files and validates each one,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	dir := "../positions"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	files, err := positions.Glob(dir)
	if err != nil {
		fmt.Printf("Error finding position files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No position files found in %s\n", dir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validatePosition(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All positions are valid!")
	} else {
		fmt.Println("❌ Some positions have errors")
		os.Exit(1)
	}
}
