package convert

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"trbk/archive"
	"trbk/book"
	"trbk/epub"
	"trbk/fonts"
	"trbk/state"
)

const unknownField = "<unknown>"

// convertBook runs the whole encoder pipeline for one source file: extract
// styled runs per spine document, then for every configured font size build a
// glyph subset, wrap, paginate and serialize. "src" is the source path
// relative to the original input (used for output naming), "dst" the
// destination directory.
func convertBook(ctx context.Context, path, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	ex, hit, err := epub.LoadOrExtract(path, log)
	if err != nil {
		return fmt.Errorf("unable to open source: %w", err)
	}
	if hit {
		log.Debug("Using cached extraction", zap.String("source", src))
	}

	meta := buildMetadata(ex, env)
	chapters := extractRuns(ctx, path, ex, env.Cfg.Document.MaxSpineItems, log)
	if len(chapters) == 0 {
		log.Warn("Source has no readable text", zap.String("source", src))
	}
	used := book.CollectCodepoints(chapters)

	sizes := env.Cfg.Document.FontSizes
	multi := len(sizes) > 1

	for _, size := range sizes {
		if err := ctx.Err(); err != nil {
			return err
		}

		layout, err := buildLayout(env, size, used)
		if err != nil {
			return err
		}

		glyphs, err := book.BuildGlyphs(env.Fonts, size, used)
		if err != nil {
			return fmt.Errorf("unable to build glyph subset: %w", err)
		}
		advances := book.BuildAdvanceTable(glyphs)

		lines := book.WrapRuns(chapters, layout, advances)
		pages := book.Paginate(lines, layout)
		spineToPage := book.SpineToPage(pages, len(ex.Spine))
		toc := book.MapTOC(chapterTOC(ex), spineHrefs(ex), spineToPage)

		outputName := buildOutputPath(ex.Metadata, src, dst, size, multi, env)
		if err := prepareOutput(outputName, env, log); err != nil {
			return err
		}

		in := &book.WriteInput{
			Metadata: fillMetadata(meta, layout, env.FontName),
			Layout:   layout,
			Pages:    pages,
			Glyphs:   glyphs,
			Advances: advances,
			TOC:      toc,
		}
		if err := book.Write(outputName, in); err != nil {
			return fmt.Errorf("unable to write output: %w", err)
		}
		log.Info("Book written", zap.String("to", outputName),
			zap.Int("size", size), zap.Int("pages", len(pages)), zap.Int("glyphs", len(glyphs)))
	}
	return nil
}

// extractRuns reads spine documents up to the configured cap and lowers each
// one to a flat run sequence. Unreadable or empty documents are skipped, a
// partial book is better than none.
func extractRuns(ctx context.Context, path string, ex *epub.Extraction, maxItems int, log *zap.Logger) []book.ChapterRuns {
	limit := len(ex.Spine)
	if maxItems > 0 && limit > maxItems {
		limit = maxItems
	}

	var out []book.ChapterRuns
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		data, err := archive.ReadFile(path, ex.Spine[i].Href)
		if err != nil {
			log.Debug("Skipping unreadable spine item", zap.String("href", ex.Spine[i].Href), zap.Error(err))
			continue
		}
		blocks, err := epub.ParseBlocks(data)
		if err != nil {
			log.Debug("Skipping unparsable spine item", zap.String("href", ex.Spine[i].Href), zap.Error(err))
			continue
		}
		runs := epub.BlockRuns(blocks)
		if len(runs) == 0 {
			continue
		}
		out = append(out, book.ChapterRuns{Chapter: i, Runs: runs})
	}
	return out
}

// buildLayout derives the per-size geometry: character cell from the regular
// 'n' advance, line height from the face line metrics with a little extra
// leading, ascent from the glyph subset.
func buildLayout(env *state.LocalEnv, size int, used map[book.StyleID]map[rune]struct{}) (book.Layout, error) {
	screen := env.Cfg.Document.Screen
	layout := book.Layout{
		ScreenWidth:  uint16(screen.Width),
		ScreenHeight: uint16(screen.Height),
		MarginX:      uint16(screen.MarginX),
		MarginY:      uint16(screen.MarginY),
	}

	regular, err := fonts.Regular(env.Fonts)
	if err != nil {
		return layout, err
	}

	m, _, err := regular.Rasterize('n', float64(size))
	if err != nil {
		return layout, fmt.Errorf("unable to measure reference glyph: %w", err)
	}
	charWidth := int(math.Round(m.Advance))
	if charWidth < 1 {
		charWidth = 1
	}
	layout.CharWidth = uint16(charWidth)

	codepoints := used[book.StyleRegular]
	if len(codepoints) == 0 {
		codepoints = make(map[rune]struct{})
		for _, set := range used {
			for cp := range set {
				codepoints[cp] = struct{}{}
			}
		}
	}
	layout.Ascent = book.ComputeAscent(regular, size, codepoints)

	if ascent, descent, gap, err := regular.LineMetrics(float64(size)); err == nil {
		height := int(math.Ceil(ascent + descent + gap))
		if height < 1 {
			height = 1
		}
		extra := height / 6
		if extra < 2 {
			extra = 2
		}
		layout.LineHeight = uint16(height + extra)
	} else {
		layout.LineHeight = uint16(size * 2)
	}

	wordSpacing := charWidth / 3
	if wordSpacing < 2 {
		wordSpacing = 2
	}
	layout.WordSpacing = int16(wordSpacing)

	return layout, nil
}

// buildMetadata fills missing source metadata with placeholders. A missing
// identifier gets a random UUID so every produced file can be told apart.
func buildMetadata(ex *epub.Extraction, env *state.LocalEnv) epub.Metadata {
	meta := ex.Metadata
	if meta.Title == "" {
		meta.Title = unknownField
	}
	if meta.Creator == "" {
		meta.Creator = unknownField
	}
	meta.Language = normalizeLanguage(meta.Language, env.Log)
	if meta.Identifier == "" {
		meta.Identifier = uuid.NewString()
	}
	return meta
}

// normalizeLanguage canonicalizes a BCP 47 tag, tolerating the sloppy values
// found in the wild. Unparsable input is kept as is.
func normalizeLanguage(lang string, log *zap.Logger) string {
	if lang == "" {
		return unknownField
	}
	tag, err := language.Parse(lang)
	if err != nil {
		log.Debug("Keeping unparsable language tag", zap.String("language", lang), zap.Error(err))
		return lang
	}
	return tag.String()
}

func fillMetadata(meta epub.Metadata, layout book.Layout, fontName string) book.Metadata {
	if fontName == "" {
		fontName = unknownField
	}
	return book.Metadata{
		Title:        meta.Title,
		Author:       meta.Creator,
		Language:     meta.Language,
		Identifier:   meta.Identifier,
		FontName:     fontName,
		CharWidth:    layout.CharWidth,
		LineHeight:   layout.LineHeight,
		Ascent:       layout.Ascent,
		MarginLeft:   layout.MarginX,
		MarginRight:  layout.MarginX,
		MarginTop:    layout.MarginY,
		MarginBottom: layout.MarginY,
	}
}

func chapterTOC(ex *epub.Extraction) []book.ChapterTocEntry {
	out := make([]book.ChapterTocEntry, 0, len(ex.TOC))
	for _, e := range ex.TOC {
		out = append(out, book.ChapterTocEntry{Title: e.Title, Chapter: e.SpineIndex, Level: e.Level})
	}
	return out
}

func spineHrefs(ex *epub.Extraction) []string {
	out := make([]string, len(ex.Spine))
	for i, s := range ex.Spine {
		out[i] = s.Href
	}
	return out
}

// prepareOutput enforces the overwrite policy and makes sure the output
// directory exists.
func prepareOutput(outputName string, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(filepath.Dir(outputName), 0755)
}
