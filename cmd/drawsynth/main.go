package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rendis/drawsynth/internal/diagram"
	"github.com/rendis/drawsynth/internal/logging"
	"github.com/rendis/drawsynth/internal/render"
	"github.com/rendis/drawsynth/internal/streaming"
	"github.com/rendis/drawsynth/internal/synth"
	"github.com/rendis/drawsynth/pkg/schema"
)

const usage = `usage: drawsynth <command> [flags]

commands:
  serve      run the MCP server on stdio
  generate   draw one request and print the result
  init       write ~/.drawsynth/settings.yaml
  version    print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "generate":
		err = runGenerate(ctx, os.Args[2:], os.Stdout)
	case "init":
		err = runInit(os.Args[2:], drawsynthDir())
	case "version", "--version", "-v":
		printVersion()
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol.
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("drawsynth serving on stdio", "version", version, "model", cfg.Model, "journal", cfg.Journal)
	return a.server().Serve(ctx)
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func runGenerate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	var answers stringList
	fs.Var(&answers, "answers", "file holding a recorded model answer; repeat for later attempts (replays instead of calling the model)")
	canvasContext := fs.String("canvas", "", "description of what is already on the canvas")
	profile := fs.String("profile", "", "canvas profile for this run: square or wide (default from settings)")
	format := fs.String("format", "json", "output: json, mermaid or ascii")
	noJournal := fs.Bool("no-journal", false, "do not record the run")
	progress := fs.Bool("progress", false, "print state transitions to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		return fmt.Errorf("generate: a prompt is required")
	}
	if *format != "json" && *format != "mermaid" && *format != "ascii" {
		return fmt.Errorf("generate: format must be json, mermaid or ascii")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if *noJournal {
		cfg.Journal = false
	}
	if *profile != "" {
		cfg.CanvasProfile = *profile
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	var opts appOptions
	var replay *replaySynth
	if len(answers) > 0 {
		replay = &replaySynth{files: answers}
		opts.synth = replay
	}
	if *progress {
		hub := streaming.NewMemoryHub()
		events, cancel, err := hub.Subscribe(ctx, streaming.EventFilter{})
		if err != nil {
			return err
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			printProgress(os.Stderr, events)
		}()
		defer func() {
			cancel()
			<-done
		}()
		opts.observer = hub
	}

	a, err := newApp(ctx, cfg, logger, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	if replay != nil {
		if err := replay.load(ctx, a.parser); err != nil {
			return err
		}
	}

	result := a.orchestrator.Run(ctx, schema.Request{Prompt: prompt, CanvasContext: *canvasContext})
	if err := writeResult(stdout, result, *format); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Reply)
	}
	return nil
}

// replaySynth feeds recorded answers through the real parser.
type replaySynth struct {
	files    []string
	scripted *synth.Scripted
}

func (r *replaySynth) load(ctx context.Context, parser *synth.LLMSynthesizer) error {
	texts := make([]string, len(r.files))
	for i, f := range r.files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read answer: %w", err)
		}
		texts[i] = string(data)
	}
	r.scripted = synth.FromAnswers(ctx, parser, texts...)
	return nil
}

func (r *replaySynth) Synthesize(ctx context.Context, req synth.Request) (*synth.Synthesis, error) {
	return r.scripted.Synthesize(ctx, req)
}

// printProgress writes one line per journal event until events is closed.
func printProgress(w io.Writer, events <-chan streaming.RunEvent) {
	for e := range events {
		line := e.EventType
		if e.State != "" {
			line = fmt.Sprintf("%-20s state=%s attempt=%d", e.EventType, e.State, e.Attempt)
		}
		fmt.Fprintln(w, line)
	}
}

func writeResult(w io.Writer, result *schema.Result, format string) error {
	switch format {
	case "mermaid", "ascii":
		model := diagram.Build(&render.Output{Shapes: result.Shapes, Bindings: result.Bindings})
		model.Title = result.Description
		out := diagram.RenderMermaid(model)
		if format == "ascii" {
			out = diagram.RenderASCII(model)
		}
		_, err := fmt.Fprint(w, out)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}
