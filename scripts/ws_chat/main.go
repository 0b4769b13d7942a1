package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/driftchat/driftchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "display name")
	room := flag.String("room", "cli-room", "room id to join")
	name := flag.String("name", "", "room name; when set the room is created if missing")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, v any) {
		payload, marshalErr := json.Marshal(v)
		if marshalErr != nil {
			log.Printf("marshal %s: %v", typ, marshalErr)
			return
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	join := proto.JoinData{Room: *room, User: *user}
	if *name != "" {
		join.Create = &proto.RoomCreation{Name: *name}
	}
	send(proto.InboundTypeJoin, join)

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. Commands: /name <new>, /rename <new>, /clear, /delete. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, *room, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Error != nil {
			fmt.Printf("! error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
			continue
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			log.Printf("marshal outbound data: %v", err)
			continue
		}

		switch outbound.Event {
		case proto.EventJoined:
			var evt proto.EventJoinedData
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("* joined %q (%d members, %d messages)\n", evt.Name, len(evt.Members), len(evt.Messages))
				for _, msg := range evt.Messages {
					fmt.Printf("  [%s] %s: %s\n", msg.Kind, msg.User, msg.Text)
				}
			}
		case proto.EventMessage:
			var evt proto.EventMessageData
			if err := json.Unmarshal(raw, &evt); err == nil {
				if evt.Kind == "system" {
					fmt.Printf("* %s\n", evt.Text)
				} else {
					fmt.Printf("%s: %s\n", evt.User, evt.Text)
				}
			}
		case proto.EventMembersUpdated:
			var evt proto.EventMembersData
			if err := json.Unmarshal(raw, &evt); err == nil {
				names := make([]string, 0, len(evt.Members))
				for _, m := range evt.Members {
					names = append(names, m.Name)
				}
				fmt.Printf("* members: %s\n", strings.Join(names, ", "))
			}
		case proto.EventRoomRenamed:
			var evt proto.EventRoomRenamedData
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("* room renamed to %q\n", evt.Name)
			}
		case proto.EventHistoryCleared:
			fmt.Println("* history cleared")
		case proto.EventRoomDeleted:
			fmt.Println("* room deleted, goodbye")
			return
		case proto.EventOwnerChanged:
			var evt proto.EventOwnerChangedData
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("* new owner: %s\n", evt.Owner)
			}
		default:
			fmt.Printf("event=%s data=%v\n", outbound.Event, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, room string, send func(string, any)) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			switch {
			case strings.HasPrefix(text, "/name "):
				send(proto.InboundTypeChangeName, proto.ChangeNameData{Room: room, Name: strings.TrimPrefix(text, "/name ")})
			case strings.HasPrefix(text, "/rename "):
				send(proto.InboundTypeRenameRoom, proto.RenameRoomData{Room: room, Name: strings.TrimPrefix(text, "/rename ")})
			case text == "/clear":
				send(proto.InboundTypeClearHistory, proto.RoomRefData{Room: room})
			case text == "/delete":
				send(proto.InboundTypeDeleteRoom, proto.RoomRefData{Room: room})
			default:
				send(proto.InboundTypeMsg, proto.MsgData{Room: room, Text: text})
			}
		}
	}
}
