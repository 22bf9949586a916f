// The kiosk command is a terminal viewer for a single creature. It joins the
// creature's room, prints every playback transition, and forwards care
// commands typed on stdin as synchronized animation triggers.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/habii/habii-server/internal/client"
	"github.com/habii/habii-server/internal/relay"
	"github.com/habii/habii-server/internal/scheduler"
	"github.com/habii/habii-server/internal/types"
)

var (
	wsUrl      string
	token      string
	creatureId string
)

func main() {
	flag.StringVar(&wsUrl, "url", "ws://localhost:8000/ws", "relay websocket URL")
	flag.StringVar(&token, "token", "", "session token")
	flag.StringVar(&creatureId, "creature", "", "creature id to watch")
	flag.Parse()

	logger := log.New(os.Stderr, "[kiosk] ", log.LstdFlags)

	if token == "" {
		token = os.Getenv("HABII_TOKEN")
	}
	if token == "" || creatureId == "" {
		logger.Fatal("both -token and -creature are required")
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	c, err := client.Dial(dialCtx, wsUrl, token, logger)
	cancel()
	if err != nil {
		logger.Fatal("dial:", err)
	}
	defer c.Close()

	sched := scheduler.New(logger, clockwork.NewRealClock(), creatureId, nil)
	defer sched.Stop()

	unsubscribe := sched.Subscribe(func(t scheduler.Transition) {
		fmt.Printf("%s  %-17s %s\n", t.At.Format("15:04:05.000"), t.State, t.Animation)
	})
	defer unsubscribe()

	stopSync := c.OnAnimationSync(func(ev *relay.AnimationEvent) {
		sched.Handle(ev)
	})
	defer stopSync()

	joinCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	members, err := c.JoinCreature(joinCtx, creatureId)
	cancel()
	if err != nil {
		logger.Fatal("join:", err)
	}
	logger.Printf("watching creature %s with %d other viewers", creatureId, len(members)-1)

	go readCommands(c, logger)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
	case <-c.Done():
		logger.Println("connection closed")
	}

	c.Leave(creatureId)
}

// readCommands forwards stdin lines as animation triggers. Unknown input
// prints usage; a rejected trigger is reported without exiting.
func readCommands(c *client.Client, logger *log.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if cmd == "" {
			continue
		}

		animation := types.AnimationType(cmd)
		if !animation.Valid() {
			fmt.Println("commands: feed, play, rest, poop, pet")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.Trigger(ctx, animation, creatureId, nil)
		cancel()
		switch {
		case errors.Is(err, client.ErrNotInRoom):
			logger.Println("not in the creature's room yet")
		case err != nil:
			logger.Println("trigger:", err)
		}
	}
}
