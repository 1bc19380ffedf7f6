package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/benbjohnson/clock"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
	"github.com/hirotachi/ws-cli-chat/pkg/transport"
	"github.com/hirotachi/ws-cli-chat/pkg/ui"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "chat server address")
	username := flag.String("username", "", "display name to join with")
	flag.Parse()

	if err := chat.ValidateUsername(*username); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	directory := transport.NewHTTPDirectory("http://"+*addr, http.DefaultClient)
	available, err := directory.CheckUsername(context.Background(), *username)
	if err != nil {
		log.Fatalln("could not check username availability: ", err)
	}
	if !available {
		fmt.Fprintf(os.Stderr, "username %q is already taken, please choose another\n", *username)
		os.Exit(1)
	}

	channel := transport.NewWSChannel("ws://" + *addr + "/chat")
	session := chat.NewSession(*username)
	view := ui.NewUI(*username)
	client := chat.NewClient(session, channel, directory, view, clock.New())
	view.Client = client

	go func() {
		if err := client.Connect(context.Background()); err != nil {
			log.Printf("connect failed: %s\n", err)
		}
	}()

	defer client.Disconnect()
	if err := view.Run(); err != nil {
		log.Fatalln("ui crashed: ", err)
	}
}
