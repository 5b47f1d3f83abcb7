package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/voocel/agentcore"
	"github.com/voocel/agentcore/authz"
	"github.com/voocel/agentcore/llm"
	"github.com/voocel/agentcore/observer"
	"github.com/voocel/agentcore/tools"
)

// config is parsed from the environment; every knob has a usable default
// except the API key.
type config struct {
	Model       string        `env:"AGENTCORE_MODEL" envDefault:"gpt-4.1-mini"`
	APIKey      string        `env:"AGENTCORE_API_KEY"`
	BaseURL     string        `env:"AGENTCORE_BASE_URL"`
	MaxTokens   int           `env:"AGENTCORE_MAX_TOKENS" envDefault:"4096"`
	Temperature float64       `env:"AGENTCORE_TEMPERATURE" envDefault:"0.3"`
	WorkDir     string        `env:"AGENTCORE_WORKDIR" envDefault:"."`
	PlanMode    bool          `env:"AGENTCORE_PLAN_MODE" envDefault:"false"`
	AutoApprove bool          `env:"AGENTCORE_AUTO_APPROVE" envDefault:"false"`
	AllowList   []string      `env:"AGENTCORE_ALLOW" envSeparator:","`
	DenyList    []string      `env:"AGENTCORE_DENY" envSeparator:","`
	ToolTimeout time.Duration `env:"AGENTCORE_TOOL_TIMEOUT" envDefault:"60s"`
	Verbose     bool          `env:"AGENTCORE_VERBOSE" envDefault:"false"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentcore: %v\n", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "agentcore: AGENTCORE_API_KEY is required")
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentcore: %v\n", err)
		os.Exit(1)
	}

	client := llm.NewClient(llm.Config{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})

	var obs observer.Observer = observer.Nop{}
	if cfg.Verbose {
		obs = observer.NewLogger(os.Stderr)
	}

	session := agentcore.NewSession(agentcore.Config{
		Stream:      client.Stream,
		Registry:    registry,
		Confirmer:   &terminalConfirmer{in: bufio.NewReader(os.Stdin), out: os.Stdout},
		Observer:    obs,
		PlanMode:    cfg.PlanMode,
		AutoApprove: cfg.AutoApprove,
		AllowList:   cfg.AllowList,
		DenyList:    cfg.DenyList,
		SystemPrompt: "You are a coding assistant working in " + cfg.WorkDir +
			". Use the available tools to inspect and modify files when the task needs it.",
	})

	// Ctrl+C aborts the in-flight run without exiting the REPL.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigCh {
			session.Abort()
		}
	}()

	repl(session)
}

func buildRegistry(cfg config) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	timeout := tools.WithTimeout(cfg.ToolTimeout)

	for _, reg := range []struct {
		tool tools.Tool
		mode tools.Mode
	}{
		{tools.NewFind(cfg.WorkDir), tools.ModeReadOnly},
		{tools.NewLs(cfg.WorkDir), tools.ModeReadOnly},
		{tools.NewRead(), tools.ModeReadOnly},
		{tools.NewFetch(0), tools.ModeReadOnly},
		{tools.NewWrite(), tools.ModeMutating},
	} {
		if err := registry.Register(reg.tool, reg.mode, timeout); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func repl(session *agentcore.Session) {
	in := bufio.NewScanner(os.Stdin)
	fmt.Println("agentcore ready. Type a prompt, or /quit to exit.")

	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		prompt := strings.TrimSpace(in.Text())
		if prompt == "" {
			continue
		}
		if prompt == "/quit" || prompt == "/exit" {
			return
		}

		for ev := range session.Run(context.Background(), prompt) {
			render(ev)
		}
		fmt.Println()
	}
}

func render(ev agentcore.Event) {
	switch ev.Type {
	case agentcore.EventMessageUpdate:
		fmt.Print(ev.Delta)
	case agentcore.EventToolResult:
		if ev.Result.IsError() {
			fmt.Printf("\n[tool %s failed: %s]\n", ev.Result.ID, ev.Result.Error)
		} else {
			fmt.Printf("\n[tool %s done]\n", ev.Result.ID)
		}
	case agentcore.EventRunCancelled:
		fmt.Println("\n[cancelled]")
	case agentcore.EventError:
		fmt.Fprintf(os.Stderr, "\nagentcore: %v\n", ev.Err)
	}
}

// terminalConfirmer renders the bounded preview and reads the decision
// from stdin. Rejections may carry feedback that flows back to the model.
type terminalConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (c *terminalConfirmer) Confirm(ctx context.Context, req *authz.ConfirmationRequest) (authz.Response, error) {
	fmt.Fprintf(c.out, "\n--- confirm %s ---\n%s\n", req.Label, req.Preview)
	fmt.Fprint(c.out, "approve? [y]es / [n]o / [a]bort: ")

	type answer struct {
		line string
		err  error
	}
	ansCh := make(chan answer, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		ansCh <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return authz.Response{Action: authz.ActionAbort}, nil
	case ans := <-ansCh:
		if ans.err != nil {
			return authz.Response{}, ans.err
		}
		switch strings.ToLower(strings.TrimSpace(ans.line)) {
		case "y", "yes":
			return authz.Response{Action: authz.ActionApprove}, nil
		case "a", "abort":
			return authz.Response{Action: authz.ActionAbort}, nil
		default:
			fmt.Fprint(c.out, "feedback (optional): ")
			fb, _ := c.in.ReadString('\n')
			return authz.Response{Action: authz.ActionReject, Feedback: strings.TrimSpace(fb)}, nil
		}
	}
}

var _ authz.Confirmer = (*terminalConfirmer)(nil)
