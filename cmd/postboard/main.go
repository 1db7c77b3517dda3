package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/UkralStul/postboard/internal/config"
	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/posts"
	"github.com/UkralStul/postboard/internal/remote"
	"github.com/UkralStul/postboard/internal/ui"
)

const help = `commands:
  list                 show posts and the form
  refresh              reload all posts from the server
  new                  start a new post (discards the draft)
  edit <id>            edit a post
  author <text>        set the draft author
  content <text>       set the draft content
  image <url>          set the draft image URL
  save                 submit the draft
  cancel               abandon the draft
  delete <id>          delete a post (asks first)
  reload <id>          refetch one post
  base <url>           switch the API base URL
  help, quit`

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	apiVar := flag.String("api", "", "API base URL (overrides "+config.EnvAPIBase+")")
	devVar := flag.Bool("dev", false, "use the local development server")
	followVar := flag.Bool("follow", false, "apply live changes from the server's change feed")
	flag.Parse()

	cfg, err := config.LoadClient(*apiVar, *devVar)
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)
	log.Info("using API", "base", cfg.BaseURL, "source", cfg.Source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := remote.New(cfg.BaseURL, remote.WithLogger(log))
	ctl := posts.New(client, posts.WithLogger(log))

	in := bufio.NewReader(os.Stdin)
	surface := ui.NewSurface(ctl, ui.NewPromptConfirmer(in, os.Stdout))
	app := &app{ctl: ctl, client: client, surface: surface, out: os.Stdout}

	if *followVar {
		ctl.OnChange(func(s posts.State) { log.Debug("state changed", "posts", len(s.Posts)) })
		go func() {
			if err := ctl.Follow(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("change feed unavailable", "err", err)
			}
		}()
	}

	_ = ctl.Refresh(ctx)
	app.render()
	fmt.Fprintln(app.out, `type "help" for commands`)

	for {
		fmt.Fprint(app.out, "> ")
		line, err := in.ReadString('\n')
		if quit := app.dispatch(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

type app struct {
	ctl     *posts.Controller
	client  *remote.Client
	surface *ui.Surface
	out     io.Writer
}

func (a *app) render() {
	if err := ui.Render(a.out, a.ctl.Snapshot(), a.surface.Form()); err != nil {
		slog.Error("render failed", "err", err)
	}
}

// dispatch runs one command and reports whether the user asked to quit.
func (a *app) dispatch(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(a.out, help)
		return false
	case "list":
	case "refresh":
		_ = a.ctl.Refresh(ctx)
	case "new":
		a.surface.BeginCreate()
	case "edit":
		if err := a.surface.BeginEdit(domain.ID(arg)); err != nil {
			fmt.Fprintln(a.out, "error:", err)
			return false
		}
	case "author":
		a.surface.SetAuthor(arg)
	case "content":
		a.surface.SetContent(arg)
	case "image":
		a.surface.SetImageURL(arg)
	case "save":
		_, _ = a.surface.Submit(ctx)
	case "cancel":
		a.surface.Cancel()
	case "delete":
		if arg == "" {
			fmt.Fprintln(a.out, "usage: delete <id>")
			return false
		}
		// the prompt reads the next input line from the same reader
		_, _ = a.surface.Delete(ctx, domain.ID(arg))
	case "reload":
		_, _ = a.ctl.Reload(ctx, domain.ID(arg))
	case "base":
		a.client.SetBaseURL(arg)
		fmt.Fprintln(a.out, "base:", a.client.BaseURL())
		return false
	default:
		fmt.Fprintf(a.out, "unknown command %q\n", cmd)
		return false
	}
	a.render()
	return false
}
