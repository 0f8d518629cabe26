// Package main provides the playback CLI client.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/playsync/internal/api/connect"
	"github.com/osa030/playsync/internal/infra/config"
)

var (
	app     = kingpin.New("playsync-cli", "playsync playback client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Control token for play/stop/toggle").Envar(config.EnvControlToken).String()
	timeout = app.Flag("timeout", "Timeout for unary calls").Default("10s").Duration()

	// play command
	playCmd      = app.Command("play", "Start playing an item")
	playSource   = playCmd.Arg("source", "Stream or file URL").Required().String()
	playID       = playCmd.Flag("id", "Item ID (generated when empty)").String()
	playTitle    = playCmd.Flag("title", "Display title").String()
	playIssue    = playCmd.Flag("issue", "Issue/collection label").String()
	playDuration = playCmd.Flag("duration", "Item duration (server default when zero)").Duration()

	stopCmd   = app.Command("stop", "Stop the current service")
	toggleCmd = app.Command("toggle", "Pause or resume the current service")
	stateCmd  = app.Command("state", "Print the current state")
	watchCmd  = app.Command("watch", "Stream state changes")

	historyCmd = app.Command("history", "Print recent notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	if command == watchCmd.FullCommand() {
		watch(client)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch command {
	case playCmd.FullCommand():
		err = play(ctx, client)
	case stopCmd.FullCommand():
		err = sendCommand(ctx, "stop", client.StopPlaying)
	case toggleCmd.FullCommand():
		err = sendCommand(ctx, "toggle", client.PauseOrResume)
	case stateCmd.FullCommand():
		err = state(ctx, client)
	case historyCmd.FullCommand():
		err = history(ctx, client)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func play(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.StartPlaying(ctx, &apiconnect.Item{
		ID:         *playID,
		Title:      *playTitle,
		Source:     *playSource,
		Issue:      *playIssue,
		DurationMs: playDuration.Milliseconds(),
	})
	if err != nil {
		return err
	}
	if !resp.Accepted {
		fmt.Printf("Rejected [%s]: item=%s\n", resp.Code, resp.ItemID)
		return nil
	}
	fmt.Printf("Requested: item=%s\n", resp.ItemID)
	return nil
}

func sendCommand(ctx context.Context, name string, call func(context.Context) (*apiconnect.CommandResponse, error)) error {
	resp, err := call(ctx)
	if err != nil {
		return err
	}
	if resp.Accepted {
		fmt.Printf("%s: sent\n", name)
	} else {
		fmt.Printf("%s: ignored, no service running\n", name)
	}
	return nil
}

func state(ctx context.Context, client *apiconnect.Client) error {
	st, err := client.GetState(ctx)
	if err != nil {
		return err
	}
	printState(st)
	return nil
}

func history(ctx context.Context, client *apiconnect.Client) error {
	h, err := client.GetHistory(ctx)
	if err != nil {
		return err
	}
	if len(h.Notifications) == 0 {
		fmt.Println("No notifications recorded")
		return nil
	}
	for _, n := range h.Notifications {
		fmt.Printf("#%-5d %s  %-20s service=%s\n", n.SequenceNo, n.SentAt.Format(time.TimeOnly), n.Kind, n.ServiceID)
	}
	return nil
}

func watch(client *apiconnect.Client) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stream, err := client.WatchState(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	fmt.Println("Watching state. Press Ctrl+C to exit.")

	for stream.Receive() {
		fmt.Printf("[%s] ", time.Now().Format(time.TimeOnly))
		printState(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
}

func printState(st *apiconnect.State) {
	if st.Item == nil {
		fmt.Println("⏹  Nothing loaded")
		return
	}
	status := "⏸  Paused"
	if st.IsPlaying {
		status = "▶️  Playing"
	}
	title := st.Item.Title
	if title == "" {
		title = st.Item.ID
	}
	fmt.Printf("%s: %s", status, title)
	if st.Item.Issue != "" {
		fmt.Printf(" (%s)", st.Item.Issue)
	}
	if st.Item.DurationMs > 0 {
		fmt.Printf(" [%v]", time.Duration(st.Item.DurationMs)*time.Millisecond)
	}
	fmt.Printf("\n  id=%s source=%s\n", st.Item.ID, st.Item.Source)
}
