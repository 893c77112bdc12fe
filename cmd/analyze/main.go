package main

// Analyze one page from the command line:
//   go run ./cmd/analyze https://example.com/guide
//   go run ./cmd/analyze ./page.html
//   cat page.html | go run ./cmd/analyze -paste

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"readability-backend/internal/analyses"
	"readability-backend/internal/bootstrap"
	"readability-backend/internal/pipeline"
	"readability-backend/internal/quota"
	"readability-backend/internal/shared/config"
	"readability-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	paste := flag.Bool("paste", false, "Read pasted HTML or text from stdin")
	noModels := flag.Bool("no-models", false, "Skip the reader models")
	outPath := flag.String("out", "", "Path to write the full JSON record (optional)")
	timeout := flag.Duration("timeout", 3*time.Minute, "Overall timeout")
	verbose := flag.Bool("v", false, "Log pipeline events to stderr")
	flag.Parse()

	if *verbose {
		telemetry.Configure(os.Stderr, "debug")
	} else {
		telemetry.Configure(io.Discard, "error")
	}

	pipelineCfg := cfg.Pipeline
	if *noModels {
		for i := range pipelineCfg.Models {
			pipelineCfg.Models[i].Enabled = false
		}
	}
	settings := bootstrap.PipelineSettings(pipelineCfg)
	settings.SnapshotEnabled = false

	repo := analyses.NewMemoryRepo()
	history := &analyses.Service{Repo: repo}
	orch := pipeline.New(analyses.Caller{ID: "cli", Role: "member"}, settings, pipeline.Deps{
		Fetcher: bootstrap.NewFetcher(pipelineCfg),
		History: history,
		Quota:   &quota.Service{Store: repo},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		orch.Cancel()
	}()

	events, unsubscribe := orch.Subscribe()
	defer unsubscribe()
	if err := start(ctx, orch, *paste, flag.Args()); err != nil {
		exitErr(err.Error())
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	snap := orch.Snapshot()
	for !snap.State.Terminal() {
		select {
		case snap = <-events:
			printProgress(os.Stderr, snap)
		case <-waitCtx.Done():
			orch.Cancel()
			exitErr("timed out")
		}
	}

	switch snap.State {
	case pipeline.StateCancelled:
		fmt.Fprintln(os.Stderr, "analysis cancelled")
		os.Exit(130)
	case pipeline.StateError:
		exitErr(fmt.Sprintf("%s: %s", snap.Error.Code, snap.Error.Message))
	}

	printReport(os.Stdout, *snap.Result)

	if *outPath != "" {
		payload, err := json.MarshalIndent(snap.Result, "", "  ")
		if err != nil {
			exitErr(err.Error())
		}
		if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
			exitErr(err.Error())
		}
	}
}

func start(ctx context.Context, orch *pipeline.Orchestrator, paste bool, args []string) error {
	if paste {
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		_, err = orch.AnalyzePaste(ctx, string(text))
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: analyze [-paste] [-no-models] [-out file.json] <url|file.html>")
	}
	target := strings.TrimSpace(args[0])
	if isLocalFile(target) {
		content, err := os.ReadFile(target)
		if err != nil {
			return err
		}
		_, err = orch.AnalyzeUpload(ctx, filepath.Base(target), content)
		return err
	}
	_, err := orch.AnalyzeURL(ctx, target)
	return err
}

func isLocalFile(target string) bool {
	if strings.Contains(target, "://") {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
