package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/plannr/plannr/blueprint-go/internal/clipboard"
	"github.com/plannr/plannr/blueprint-go/internal/config"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/export"
	"github.com/plannr/plannr/blueprint-go/internal/store"
	"github.com/plannr/plannr/blueprint-go/internal/typeid"
)

const usage = `usage: blueprint <command> [flags]

commands:
  sample   write a sample blueprint as JSON
  export   render a blueprint file to png or pdf
  copy     copy shapes of a blueprint file to the clipboard
  paste    paste clipboard shapes into a blueprint file`

var errUsage = errors.New("invalid usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := run(os.Args[1:], os.Stdout, clipboardSlot(cfg)); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// clipboardSlot picks the OS clipboard when enabled and usable, otherwise a
// file under the user cache dir shared by all invocations.
func clipboardSlot(cfg *config.Config) clipboard.Slot {
	if cfg.ClipboardSystem {
		if clipboard.SystemAvailable() {
			return clipboard.SystemSlot{}
		}
		slog.Warn("system clipboard unavailable, using file clipboard")
	}
	path := cfg.ClipboardFile
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		path = filepath.Join(dir, "plannr", "clipboard.json")
	}
	return clipboard.FileSlot{Path: path}
}

func run(args []string, stdout io.Writer, slot clipboard.Slot) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "sample":
		return runSample(args, stdout)
	case "export":
		return runExport(args, stdout)
	case "copy":
		return runCopy(args, stdout, slot)
	case "paste":
		return runPaste(args, stdout, slot)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func runSample(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	bp, err := document.NewSampleBlueprint(typeid.NewBlueprintID())
	if err != nil {
		return err
	}
	return writeBlueprint(bp, *out, stdout)
}

func runExport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	in := fs.String("in", "", "blueprint JSON file")
	out := fs.String("o", "", "output file (default stdout)")
	format := fs.String("format", "", "png or pdf (default from -o extension, else png)")
	opts := export.DefaultOptions()
	fs.Float64Var(&opts.Scale, "scale", opts.Scale, "pixels per inch")
	fs.Float64Var(&opts.Margin, "margin", opts.Margin, "margin in inches")
	fs.StringVar(&opts.Background, "background", opts.Background, "background color")
	grid := fs.Bool("grid", true, "draw the grid")
	if err := fs.Parse(args); err != nil || *in == "" {
		return errUsage
	}
	if !*grid {
		opts.GridSize = 0
	}

	f := export.Format(*format)
	if f == "" {
		f = export.FormatPNG
		if ext := strings.TrimPrefix(filepath.Ext(*out), "."); ext != "" {
			f = export.Format(strings.ToLower(ext))
		}
	}

	bp, err := readBlueprint(*in)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.Render(&buf, bp, f, opts); err != nil {
		return fmt.Errorf("export %s: %w", bp.ID, err)
	}
	if *out == "" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(*out, buf.Bytes(), 0o644)
}

func runCopy(args []string, stdout io.Writer, slot clipboard.Slot) error {
	fs := flag.NewFlagSet("copy", flag.ContinueOnError)
	in := fs.String("in", "", "blueprint JSON file")
	ids := fs.String("ids", "", "comma separated shape ids (default all)")
	if err := fs.Parse(args); err != nil || *in == "" {
		return errUsage
	}

	bp, err := readBlueprint(*in)
	if err != nil {
		return err
	}
	shapes, err := bp.Shapes()
	if err != nil {
		return fmt.Errorf("decode %s: %w", *in, err)
	}
	if *ids != "" {
		st := store.New(shapes)
		picked := shapes[:0:0]
		for _, id := range strings.Split(*ids, ",") {
			s, ok := st.Get(strings.TrimSpace(id))
			if !ok {
				return fmt.Errorf("copy %q: %w", id, store.ErrShapeNotFound)
			}
			picked = append(picked, s)
		}
		shapes = picked
	}

	if err := clipboard.New(slot).Copy(shapes); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "copied %d shapes\n", len(shapes))
	return nil
}

func runPaste(args []string, stdout io.Writer, slot clipboard.Slot) error {
	fs := flag.NewFlagSet("paste", flag.ContinueOnError)
	in := fs.String("in", "", "blueprint JSON file")
	out := fs.String("o", "", "output file (default overwrite -in)")
	if err := fs.Parse(args); err != nil || *in == "" {
		return errUsage
	}

	bp, err := readBlueprint(*in)
	if err != nil {
		return err
	}
	shapes, err := bp.Shapes()
	if err != nil {
		return fmt.Errorf("decode %s: %w", *in, err)
	}
	pasted, err := clipboard.New(slot).Paste()
	if err != nil {
		return err
	}

	st := store.New(shapes)
	st.ClearSelection()
	for _, s := range pasted {
		if _, err := st.Add(s); err != nil {
			return fmt.Errorf("paste: %w", err)
		}
	}
	if bp.CanvasData, err = document.MarshalShapes(st.Shapes()); err != nil {
		return err
	}

	target := *out
	if target == "" {
		target = *in
	}
	if err := writeBlueprint(bp, target, stdout); err != nil {
		return err
	}
	slog.Info("pasted shapes", "count", len(pasted), "blueprint", bp.ID, "file", target)
	return nil
}

func readBlueprint(path string) (*document.Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint: %w", err)
	}
	var bp document.Blueprint
	if err := json.Unmarshal(data, &bp); err != nil {
		return nil, fmt.Errorf("decode blueprint %s: %w", path, err)
	}
	return &bp, nil
}

func writeBlueprint(bp *document.Blueprint, path string, stdout io.Writer) error {
	data, err := json.MarshalIndent(bp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode blueprint: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
