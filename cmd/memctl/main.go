// Command memctl is a small CLI demo over the memory engine's public
// facade: one kong CLI struct, one command per public action.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roelfdiedericks/memoryengine/internal/actions"
	"github.com/roelfdiedericks/memoryengine/internal/facade"
	. "github.com/roelfdiedericks/memoryengine/internal/logging"
	"github.com/roelfdiedericks/memoryengine/internal/memory"
	"github.com/roelfdiedericks/memoryengine/internal/storemgr"
	"github.com/roelfdiedericks/memoryengine/internal/telemetry"
)

// Context carries the wired dependencies every command needs as the
// *Context parameter to every Cmd.Run.
type Context struct {
	Surface *actions.Surface
	Facade  *facade.Facade
}

type CLI struct {
	DataDir string `help:"Base directory for session stores." type:"path"`
	Debug   bool   `help:"Enable debug logging." short:"d"`

	Remember RememberCmd `cmd:"" help:"Store a new memory."`
	Recall   RecallCmd   `cmd:"" help:"Retrieve ranked memories for a context hint."`
	Forget   ForgetCmd   `cmd:"" help:"Supersede (optionally replacing) a memory."`
	Stats    StatsCmd    `cmd:"" help:"Print session statistics."`
	Health   HealthCmd   `cmd:"" help:"Probe a session's store health."`
}

type RememberCmd struct {
	Session    string `arg:"" help:"Session id."`
	Content    string `arg:"" help:"Memory content."`
	Type       string `help:"Memory type (fact, decision, convention, error, ...)." default:"fact"`
	Source     string `help:"Source type (user, agent, tool, external_document)." default:"agent"`
	Confidence float64 `help:"Confidence in [0,1]." default:"0.8"`
	Rationale  string `help:"Optional rationale."`
}

func (c *RememberCmd) Run(ctx *Context) error {
	result, err := ctx.Surface.Remember(context.Background(), actions.RememberInput{
		SessionID:  c.Session,
		Content:    c.Content,
		MemoryType: c.Type,
		Confidence: c.Confidence,
		SourceType: c.Source,
		Rationale:  c.Rationale,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

type RecallCmd struct {
	Session string `arg:"" help:"Session id."`
	Hint    string `arg:"" help:"Context hint to rank memories against."`
	Limit   int    `help:"Maximum results (1-50)." default:"5"`
}

func (c *RecallCmd) Run(ctx *Context) error {
	result, err := ctx.Surface.Recall(context.Background(), actions.RecallInput{
		SessionID:   c.Session,
		ContextHint: c.Hint,
		Limit:       c.Limit,
		Options:     memory.DefaultContextOptions(),
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

type ForgetCmd struct {
	Session     string `arg:"" help:"Session id."`
	MemoryID    string `arg:"" help:"Memory id to forget."`
	ReplacedBy  string `help:"Optional replacement memory id."`
}

func (c *ForgetCmd) Run(ctx *Context) error {
	result, err := ctx.Surface.Forget(context.Background(), actions.ForgetInput{
		SessionID:     c.Session,
		MemoryID:      c.MemoryID,
		ReplacementID: c.ReplacedBy,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

type StatsCmd struct {
	Session string `arg:"" help:"Session id."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	stats, err := ctx.Facade.GetStats(context.Background(), c.Session)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

type HealthCmd struct {
	Session string `arg:"" help:"Session id."`
}

func (c *HealthCmd) Run(ctx *Context) error {
	deadline, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ctx.Facade.Health(deadline, c.Session); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func main() {
	cli := CLI{}
	parsed := kong.Parse(&cli,
		kong.Name("memctl"),
		kong.Description("CLI demo over the memory engine's public facade."),
		kong.UsageOnError(),
	)

	level := LevelInfo
	if cli.Debug {
		level = LevelDebug
	}
	Init(&Config{Level: level, ShowCaller: cli.Debug})

	stores, err := storemgr.New(storemgr.Config{BasePath: cli.DataDir})
	if err != nil {
		L_fatal("memctl: failed to open store manager", "error", err)
	}
	defer stores.CloseAll(context.Background())

	f := facade.New(stores)
	tel := telemetry.New(prometheus.NewRegistry())
	surface := actions.New(f, tel)

	if err := parsed.Run(&Context{Surface: surface, Facade: f}); err != nil {
		L_fatal("memctl: command failed", "error", err)
	}
}
