package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/reoring/attrmap"
	"github.com/reoring/attrmap/batch"
	"github.com/reoring/attrmap/i18n"
	"github.com/reoring/attrmap/schemafile"
	_ "github.com/reoring/attrmap/source"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "eval":
		return evalCmd(ctx, args[1:], stdin, stdout, stderr)
	case "check":
		return checkCmd(args[1:], stdout, stderr)
	case "describe":
		return describeCmd(args[1:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `attrmap CLI

Usage:
  attrmap eval -schema s.yaml [-format json|bson] [-workers N] [-rate N] [-max-depth N] [-max-bytes N] [-dup ignore|warn|error] [-v] doc.json... (- for stdin)
  attrmap check -schema s.yaml [-lang en|ja]
  attrmap describe -schema s.yaml`)
}

func evalCmd(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		schemaPath string
		format     string
		workers    int
		rateLimit  float64
		maxDepth   int
		maxBytes   int64
		dup        string
		verbose    bool
	)
	fs.StringVar(&schemaPath, "schema", "", "schema file (YAML)")
	fs.StringVar(&format, "format", "json", "output format: json or bson")
	fs.IntVar(&workers, "workers", 0, "worker goroutines (default GOMAXPROCS)")
	fs.Float64Var(&rateLimit, "rate", 0, "max documents per second (0 = unlimited)")
	fs.IntVar(&maxDepth, "max-depth", 0, "max document nesting (0 = unlimited)")
	fs.Int64Var(&maxBytes, "max-bytes", 0, "max bytes per document (0 = unlimited)")
	fs.StringVar(&dup, "dup", "ignore", "duplicate keys: ignore, warn or error")
	fs.BoolVar(&verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if schemaPath == "" || fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	onDup, ok := attrmap.ParseDuplicatePolicy(dup)
	if !ok {
		fmt.Fprintf(stderr, "invalid -dup %q\n", dup)
		return 2
	}
	write, ok := writers[format]
	if !ok {
		fmt.Fprintf(stderr, "invalid -format %q\n", format)
		return 2
	}

	logger, err := newLogger(verbose)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	s, err := schemafile.Load(schemaPath)
	if err != nil {
		sugar.Errorw("schema rejected", "path", schemaPath, "error", err)
		return 1
	}
	docs, err := readDocs(fs.Args(), stdin)
	if err != nil {
		sugar.Errorw("failed to read input", "error", err)
		return 1
	}

	rep, err := batch.Run(ctx, s, docs, batch.Options{
		Workers:   workers,
		RateLimit: rateLimit,
		Decode:    attrmap.DecodeOpt{OnDuplicate: onDup, MaxDepth: maxDepth, MaxBytes: maxBytes},
		Logger:    sugar.With("files", fs.Args()),
	})
	if err != nil {
		return 1
	}
	for _, rec := range rep.Records {
		if rec == nil {
			continue
		}
		if err := write(stdout, rec); err != nil {
			sugar.Errorw("failed to write record", "id", rec.ID, "error", err)
			return 1
		}
	}
	if len(rep.Quarantined) > 0 {
		return 1
	}
	return 0
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stderr"}
		return z.Build()
	}
	return zap.NewProduction()
}

func readDocs(paths []string, stdin io.Reader) ([][]byte, error) {
	docs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		var b []byte
		var err error
		if p == "-" {
			b, err = io.ReadAll(stdin)
		} else {
			b, err = os.ReadFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, b)
	}
	return docs, nil
}

var writers = map[string]func(io.Writer, *attrmap.Record) error{
	"json": writeJSON,
	"bson": writeBSON,
}

func writeJSON(w io.Writer, rec *attrmap.Record) error {
	return json.NewEncoder(w).Encode(rec)
}

// writeBSON emits one BSON document per record, converted through relaxed
// extended JSON so info blobs become embedded documents.
func writeBSON(w io.Writer, rec *attrmap.Record) error {
	js, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(js, false, &doc); err != nil {
		return fmt.Errorf("convert record %s: %w", rec.ID, err)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

func checkCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var schemaPath, lang string
	fs.StringVar(&schemaPath, "schema", "", "schema file (YAML)")
	fs.StringVar(&lang, "lang", "en", "message language: en or ja")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if schemaPath == "" {
		fs.Usage()
		return 2
	}
	i18n.SetLanguage(lang)

	ok, fail := color.New(color.FgGreen, color.Bold), color.New(color.FgRed, color.Bold)
	if isTerminal(stdout) {
		ok.EnableColor()
		fail.EnableColor()
	} else {
		ok.DisableColor()
		fail.DisableColor()
	}

	s, err := schemafile.Load(schemaPath)
	if err == nil {
		fmt.Fprintf(stdout, "%s %s (schema %q, depth %d)\n", ok.Sprint("OK"), schemaPath, s.Name(), s.Depth())
		return 0
	}
	fmt.Fprintf(stdout, "%s %s\n", fail.Sprint("FAIL"), schemaPath)
	if se, isSchema := attrmap.AsSchemaErrors(err); isSchema {
		for _, e := range se {
			fmt.Fprintf(stdout, "  %s %s: %s\n", fail.Sprint(e.Code), e.Path, e.Message)
		}
	} else {
		fmt.Fprintf(stdout, "  %v\n", err)
	}
	return 1
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func describeCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var schemaPath string
	fs.StringVar(&schemaPath, "schema", "", "schema file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if schemaPath == "" {
		fs.Usage()
		return 2
	}
	s, err := schemafile.Load(schemaPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	b, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, string(b))
	return 0
}
