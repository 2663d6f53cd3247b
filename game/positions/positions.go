// Package positions loads named board positions from YAML files.
//
// A position file looks like:
//
//	name: Double chariot mate
//	description: Black is mated along the back rank
//	turn: black
//	flying_general: prevent
//	layout:
//	  - "....g...R"
//	  - "R........"
//	  ...
//
// Turn defaults to red and flying_general to prevent.
package positions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/xiangqi/game/engine"
	"gopkg.in/yaml.v3"
)

// ErrNoLayout is returned for a file without layout rows
var ErrNoLayout = errors.New("position has no layout")

// File is one position as stored on disk
type File struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Turn          string   `yaml:"turn"`
	FlyingGeneral string   `yaml:"flying_general"`
	Layout        []string `yaml:"layout"`
}

// Load reads and decodes a position file. The layout itself is not
// checked; use Board and Side for that.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read position: %w", err)
	}
	return Parse(data)
}

// Parse decodes a position from YAML
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(f.Layout) == 0 {
		return nil, ErrNoLayout
	}
	return &f, nil
}

// Board parses the layout rows
func (f *File) Board() (engine.Board, error) {
	return engine.ParseLayout(f.Layout)
}

// Side returns the side to move
func (f *File) Side() (engine.Side, error) {
	var s engine.Side
	if f.Turn == "" {
		return engine.Red, nil
	}
	err := s.UnmarshalText([]byte(f.Turn))
	return s, err
}

// Rules returns the validator for the file's flying-general policy
func (f *File) Rules() (engine.Rules, error) {
	policy, err := engine.ParseFlyingGeneralPolicy(f.FlyingGeneral)
	if err != nil {
		return engine.Rules{}, err
	}
	return engine.Rules{FlyingGeneral: policy}, nil
}

// Analyze validates the position and evaluates it for the side to move
func (f *File) Analyze() (*engine.Analysis, error) {
	board, err := f.Board()
	if err != nil {
		return nil, err
	}
	side, err := f.Side()
	if err != nil {
		return nil, err
	}
	rules, err := f.Rules()
	if err != nil {
		return nil, err
	}
	return rules.Analyze(board, side)
}

// Glob lists the .yaml and .yml files in dir, sorted
func Glob(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}
