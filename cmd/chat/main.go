// Command chat is a terminal client: join one team room, print pushes
// as they arrive, send whatever you type.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gookit/color"

	"teamchat/client"
	"teamchat/domain"
)

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "REST base URL")
	socketURL := flag.String("socket", "ws://localhost:8080/ws", "Websocket URL")
	token := flag.String("token", os.Getenv("TEAMCHAT_TOKEN"), "Bearer token")
	team := flag.String("team", "", "Team id to join")
	flag.Parse()

	if *token == "" || *team == "" {
		log.Fatal("both -token and -team are required")
	}
	teamID := domain.TeamID(*team)

	c := client.New(client.Config{
		BaseURL:   *baseURL,
		SocketURL: *socketURL,
		Token:     *token,
	})

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	unsubscribe := c.Subscribe(func(message domain.Message) {
		printMessage(message)
	})
	defer unsubscribe()

	if err := c.JoinTeam(teamID); err != nil {
		log.Fatal(err)
	}
	if err := c.LoadHistory(ctx, teamID, 20); err != nil {
		log.Fatal(err)
	}
	for _, message := range c.Timeline(teamID).Messages() {
		printMessage(message)
	}

	color.Cyanln("Connected. Type a message and press enter; /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			break
		}
		if line == "" {
			continue
		}
		if _, err := c.SendMessage(ctx, teamID, line); err != nil {
			color.Redln("send failed: ", err)
		}
	}

	_ = c.LeaveTeam(teamID)
}

func printMessage(message domain.Message) {
	fmt.Printf("%s %s %s\n",
		color.Gray.Sprint(message.CreatedAt.Local().Format("15:04:05")),
		color.Green.Sprintf("%s:", message.Sender.Name),
		message.Content,
	)
}
