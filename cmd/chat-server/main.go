package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis/v8"

	"github.com/hirotachi/ws-cli-chat/pkg/hub"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	redisAddr := flag.String("redis", "", "redis address, runs an in-process redis when empty")
	flag.Parse()

	if *redisAddr == "" {
		// temporary redis server for development
		mr, err := miniredis.Run()
		if err != nil {
			log.Fatalln("error creating redis db: ", err)
		}
		*redisAddr = mr.Addr()
	}
	redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalln("cannot connect to redis db: ", err)
	}

	h := hub.NewHub(redisClient)
	log.Printf("chat server listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, h.Router()); err != nil {
		log.Fatalln("server stopped: ", err)
	}
}
