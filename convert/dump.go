package convert

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"trbk/book"
	"trbk/state"
	"trbk/utils/debug"
)

// Dump prints the structure of a compiled book: header, metadata, TOC, glyph
// subset summary and per-page instruction counts. Meant for format debugging.
func Dump(ctx context.Context, cmd *cli.Command) error {
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
	info := r.Info()

	tw := debug.NewTreeWriter()
	tw.Line(0, "book: %s", path)
	tw.Line(1, "screen: %dx%d", info.ScreenWidth, info.ScreenHeight)
	tw.Line(1, "pages: %d", info.PageCount)

	tw.Line(1, "metadata:")
	tw.TextBlock(2, "title", info.Metadata.Title)
	tw.TextBlock(2, "author", info.Metadata.Author)
	tw.TextBlock(2, "language", info.Metadata.Language)
	tw.TextBlock(2, "identifier", info.Metadata.Identifier)
	tw.TextBlock(2, "font", info.Metadata.FontName)
	tw.Line(2, "char_width: %d line_height: %d ascent: %d", info.Metadata.CharWidth, info.Metadata.LineHeight, info.Metadata.Ascent)
	tw.Line(2, "margins: left %d right %d top %d bottom %d",
		info.Metadata.MarginLeft, info.Metadata.MarginRight, info.Metadata.MarginTop, info.Metadata.MarginBottom)

	tw.Line(1, "toc: %d entries", len(info.TOC))
	for _, e := range info.TOC {
		tw.Line(2+int(e.Level), "page %d: %s", e.PageIndex, e.Title)
	}

	tw.Line(1, "glyphs: %d", len(info.Glyphs))
	perStyle := make(map[book.StyleID]int)
	for _, g := range info.Glyphs {
		perStyle[g.Style]++
	}
	for _, style := range []book.StyleID{book.StyleRegular, book.StyleBold, book.StyleItalic, book.StyleBoldItalic} {
		if n := perStyle[style]; n > 0 {
			tw.Line(2, "%s: %d", style, n)
		}
	}

	if cmd.Bool("pages") {
		tw.Line(1, "page ops:")
		for i := 0; i < info.PageCount; i++ {
			page, err := r.Page(i)
			if err != nil {
				return fmt.Errorf("unable to read page %d: %w", i, err)
			}
			tw.Line(2, "page %d: %d ops", i, len(page.Ops))
		}
	}

	fmt.Print(tw.String())
	return nil
}

func limitsFromConfig(env *state.LocalEnv) book.Limits {
	return book.Limits{
		MaxBookBytes: env.Cfg.Limits.MaxBookBytes,
		MaxPageBytes: env.Cfg.Limits.MaxPageBytes,
	}
}
