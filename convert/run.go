package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"trbk/fonts"
	"trbk/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	if sizes := cmd.String("sizes"); len(sizes) > 0 {
		parsed, err := parseSizes(sizes)
		if err != nil {
			return fmt.Errorf("bad --sizes value: %w", err)
		}
		env.Cfg.Document.FontSizes = parsed
	}

	if err := loadFonts(env); err != nil {
		return err
	}
	log.Debug("Fonts loaded", zap.String("family", env.FontName), zap.Ints("sizes", env.Cfg.Document.FontSizes))

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// parseSizes turns a comma separated list of pixel sizes into a sorted,
// deduplicated slice.
func parseSizes(s string) ([]int, error) {
	seen := make(map[int]struct{})
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		if size < 6 || size > 72 {
			return nil, fmt.Errorf("size %d is out of range [6, 72]", size)
		}
		if _, ok := seen[size]; ok {
			continue
		}
		seen[size] = struct{}{}
		out = append(out, size)
	}
	if len(out) == 0 {
		return nil, errors.New("no sizes given")
	}
	sort.Ints(out)
	return out, nil
}

// loadFonts opens the configured font files once for the whole batch.
func loadFonts(env *state.LocalEnv) error {
	cfg := env.Cfg.Document.Fonts
	if cfg.Regular == "" {
		return errors.New("no regular font has been configured")
	}
	set, name, err := fonts.LoadSet(fonts.Paths{
		Regular:    cfg.Regular,
		Bold:       cfg.Bold,
		Italic:     cfg.Italic,
		BoldItalic: cfg.BoldItalic,
	})
	if err != nil {
		return fmt.Errorf("unable to load fonts: %w", err)
	}
	env.Fonts, env.FontName = set, name
	return nil
}

// process handles the core conversion logic independently of CLI framework.
// It determines the input type (directory or single file) and processes
// accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}

	if fi.Mode().IsDir() {
		return processDir(ctx, src, dst, log)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}

	ok, err := isEpubFile(src)
	if err != nil {
		return fmt.Errorf("unable to check file type: %w", err)
	}
	if !ok {
		return fmt.Errorf("input was not recognized as EPUB book (%s)", src)
	}
	return processBook(ctx, src, filepath.Base(src), dst, log)
}

// processDir walks directory tree finding books and processes them in
// natural name order so numbered volumes come out in sequence. Per-book
// failures are collected, a bad file never stops the batch.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) error {
	var books []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		ok, err := isEpubFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !ok {
			log.Debug("Skipping file, not recognized as book", zap.String("file", path))
			return nil
		}
		books = append(books, path)
		return nil
	})
	if err != nil {
		return err
	}
	if len(books) == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}
	sort.Sort(natural.StringSlice(books))

	var errs error
	for _, path := range books {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processBook(ctx, path, src, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", src, err))
		}
	}
	return errs
}

// processBook processes single book. "src" is part of the source path
// (always including file name) relative to the original path. When actual
// file was specified it will be just base file name without a path. "dst" is
// the destination directory where converted files should be written.
func processBook(ctx context.Context, path, src, dst string, log *zap.Logger) (rerr error) {
	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		// NOTE: font parsing on arbitrary files can misbehave, when multiple
		// books are being processed we do not want to stop.
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)))
		}
	}(time.Now())

	return convertBook(ctx, path, src, dst, log)
}
