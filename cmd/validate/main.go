// Command validate checks 2048 files before they are used.
//
//	validate save [--size N] FILE|DIR...     saved games (JSON or YAML)
//	validate variant FILE|DIR...             rule variants
//
// It prints a report per file and exits non-zero if any file is invalid.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

var errInvalidFiles = errors.New("some files have errors")

// report prints results and reports whether all of them were valid
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintf(w, "✅ All %d files are valid!\n", len(results))
	} else {
		fmt.Fprintln(w, "❌ Some files have errors")
	}
	return allValid
}

func run(cmd *cli.Command, check func(path string) ValidationResult) error {
	if cmd.Args().Len() == 0 {
		return cli.Exit("no files given", 2)
	}
	files, err := collect(cmd.Args().Slice())
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, check(file))
	}
	if !report(cmd.Root().Writer, results) {
		return cli.Exit(errInvalidFiles.Error(), 1)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "validate 2048 saved games and rule variants",
		Commands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "validate saved games",
				ArgsUsage: "FILE|DIR...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "size",
						Usage: "expected board size (0 = take it from the file)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					size := cmd.Int("size")
					return run(cmd, func(path string) ValidationResult {
						return validateSave(path, size)
					})
				},
			},
			{
				Name:      "variant",
				Usage:     "validate rule variants",
				ArgsUsage: "FILE|DIR...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return run(cmd, validateVariant)
				},
			},
		},
	}
}

func main() {
	// Exit errors terminate inside Run with their own status
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
