package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/driftchat/driftchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name")
	room := flag.String("room", "smoke-room", "room id to join")
	name := flag.String("name", "Smoke Test Room", "room name used when creating")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, v any) error {
		payload, marshalErr := json.Marshal(v)
		if marshalErr != nil {
			return fmt.Errorf("marshal %s: %w", typ, marshalErr)
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); writeErr != nil {
			return fmt.Errorf("send %s: %w", typ, writeErr)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoin, proto.JoinData{
		Room:   *room,
		User:   *user,
		Create: &proto.RoomCreation{Name: *name},
	}); err != nil {
		return err
	}

	joined := false
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if outbound.Error != nil {
			return fmt.Errorf("server error: %s (%s)", outbound.Error.Msg, outbound.Error.Code)
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			return fmt.Errorf("marshal outbound data: %w", err)
		}

		switch outbound.Event {
		case proto.EventJoined:
			var evt proto.EventJoinedData
			if err := json.Unmarshal(raw, &evt); err != nil {
				return fmt.Errorf("unmarshal joined: %w", err)
			}
			fmt.Printf("Joined: room=%s name=%q members=%d owner=%s\n", evt.Room, evt.Name, len(evt.Members), evt.Owner)
			joined = true
			if err := send(proto.InboundTypeMsg, proto.MsgData{Room: *room, Text: *text}); err != nil {
				return err
			}
		case proto.EventMessage:
			var evt proto.EventMessageData
			if err := json.Unmarshal(raw, &evt); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("Message: room=%s user=%s kind=%s text=%q ts=%d\n", evt.Room, evt.User, evt.Kind, evt.Text, evt.TS)
			if joined && evt.Kind == "user" {
				return nil
			}
		case proto.EventMembersUpdated:
			var evt proto.EventMembersData
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("Members: room=%s count=%d\n", evt.Room, len(evt.Members))
			}
		default:
			fmt.Printf("Received outbound: type=%s event=%s\n", outbound.Type, outbound.Event)
		}
	}
}
