package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tilerealm.dev/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "avatar name")
		token    = flag.String("resume", "", "resume token from an earlier WELCOME (optional)")
		interval = flag.Duration("interval", 500*time.Millisecond, "time between steps")
		seed     = flag.Int64("seed", 0, "walk seed (0 = time based)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AvatarName:      *name,
	}
	if t := strings.TrimSpace(*token); t != "" {
		hello.Auth = &protocol.HelloAuth{Token: t}
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	wk := newWalker(rand.New(rand.NewSource(*seed)))

	msgs := make(chan []byte, 16)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	tick := time.NewTicker(*interval)
	defer tick.Stop()

	tileSize := 0
	for {
		select {
		case <-stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeWelcome:
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(msg, &w); err != nil {
					continue
				}
				tileSize = w.RealmParams.TileSize
				logger.Printf("WELCOME avatar_id=%s resume=%s seed=%d spawn=%v peers=%d", w.AvatarID, w.ResumeToken, w.RealmParams.Seed, w.Spawn, len(w.Peers))
			case protocol.TypeChunks:
				var c protocol.ChunksMsg
				if err := json.Unmarshal(msg, &c); err != nil {
					continue
				}
				wk.apply(c)
				if len(c.Loaded) > 0 || len(c.Unloaded) > 0 {
					logger.Printf("CHUNKS tile=%v loaded=%d unloaded=%d known_solid=%d", c.Tile, len(c.Loaded), len(c.Unloaded), len(wk.solid))
				}
			case protocol.TypeError:
				var e protocol.ErrorMsg
				_ = json.Unmarshal(msg, &e)
				logger.Printf("ERROR %s: %s", e.Code, e.Message)
			}
		case <-tick.C:
			if tileSize == 0 || !wk.placed {
				continue
			}
			next := wk.step()
			mv := protocol.MoveMsg{
				Type:            protocol.TypeMove,
				ProtocolVersion: protocol.Version,
				X:               float64(next[0]*tileSize + tileSize/2),
				Y:               float64(next[1]*tileSize + tileSize/2),
			}
			if err := conn.WriteJSON(mv); err != nil {
				logger.Printf("send MOVE: %v", err)
				return
			}
		}
	}
}
