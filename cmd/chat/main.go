// Command chat runs the terminal chat screen over mock data. With -server it
// instead talks to a wachat server: it lists conversations and, given a
// conversation or a peer, tails the thread and sends lines read from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"wachat/internal/chatsync"
	"wachat/internal/chatview"
	"wachat/internal/client"
	"wachat/internal/domain"
	"wachat/internal/logging"
)

func main() {
	server := flag.String("server", "", "wachat server URL, e.g. http://localhost:8000")
	token := flag.String("token", os.Getenv("WACHAT_TOKEN"), "bearer token")
	user := flag.String("user", "", "user id the token was issued to")
	convID := flag.String("conversation", "", "conversation to open")
	with := flag.String("with", "", "open (or start) the direct conversation with this user id")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *server == "" {
		p := tea.NewProgram(chatview.New(), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "chat: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *token == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "chat: -token and -user are required with -server")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New(*logLevel, true)
	if err := runRemote(ctx, *server, *token, *user, *convID, *with, log); err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
}

func runRemote(ctx context.Context, server, token, userID, convID, with string, log zerolog.Logger) error {
	backend := client.New(server, token, client.WithLogger(log))
	convs := chatsync.NewConversations(backend, userID, log)

	if with != "" {
		id, err := convs.CreateDirect(ctx, with)
		if err != nil {
			return fmt.Errorf("open conversation with %s: %w", with, err)
		}
		convID = id
	}

	if convID == "" {
		for _, v := range convs.Fetch(ctx) {
			preview := ""
			if v.LastMessage != nil {
				preview = v.LastMessage.Sender.DisplayName + ": " + v.LastMessage.Content
			}
			fmt.Printf("%s  %-24s %s\n", v.ID, v.Name, preview)
		}
		return nil
	}

	thread := chatsync.NewThread(backend, userID, log)
	thread.Open(convID)

	// Listen before the first Fetch so nothing sent in between is missed.
	// Pushed messages are printed only once the history is out.
	var (
		printMu  sync.Mutex
		caughtUp bool
	)
	listener := chatsync.NewListener(backend, func(mv *domain.MessageView) {
		printMu.Lock()
		defer printMu.Unlock()
		if thread.Append(mv) && caughtUp {
			printMessage(mv)
		}
	}, log)
	if err := listener.Listen(ctx, convID); err != nil {
		return err
	}
	defer listener.Stop()

	thread.Fetch(ctx)
	printMu.Lock()
	for _, mv := range thread.Messages() {
		printMessage(mv)
	}
	caughtUp = true
	printMu.Unlock()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := thread.Send(ctx, line, domain.MessageText); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			}
		}
	}
}

func printMessage(mv *domain.MessageView) {
	name := domain.PlaceholderProfile(mv.SenderID).DisplayName
	if mv.Sender != nil {
		name = mv.Sender.DisplayName
	}
	fmt.Printf("[%s] %s: %s\n", mv.CreatedAt.Local().Format("15:04"), name, mv.Content)
}
