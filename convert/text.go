package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"trbk/book"
	"trbk/state"
)

// Text streams the textual content of a compiled book to stdout, one page at
// a time, reconstructing lines from pen positions. Useful for eyeballing the
// result of a conversion without a device.
func Text(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)

	path := cmd.Args().Get(0)
	if len(path) == 0 {
		return errors.New("no book file has been specified")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := book.Open(f, limitsFromConfig(env))
	if err != nil {
		return fmt.Errorf("unable to open book: %w", err)
	}

	var sb strings.Builder
	for i := 0; i < r.Info().PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := r.Page(i)
		if err != nil {
			return fmt.Errorf("unable to read page %d: %w", i, err)
		}

		sb.Reset()
		fmt.Fprintf(&sb, "--- page %d ---\n", i)
		lastY := -1
		for _, op := range page.Ops {
			if op.Y != lastY {
				if lastY >= 0 {
					sb.WriteByte('\n')
				}
				lastY = op.Y
			} else {
				sb.WriteByte(' ')
			}
			sb.WriteString(op.Text)
		}
		sb.WriteByte('\n')
		fmt.Print(sb.String())
	}
	return nil
}
