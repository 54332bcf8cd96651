package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
)

// wsHandler upgrades the connection and bridges it to the hub and rooms:
// a writer goroutine drains the outbox, the read loop dispatches commands.
func wsHandler(h *Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan protocol.ServerMessage, 32)
		identity := r.URL.Query().Get("identity")
		var room *Room

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		defer func() {
			if identity != "" {
				h.Inbox() <- LeaveQueue{Identity: identity}
			}
			if room != nil {
				room.Inbox() <- Leave{Identity: identity}
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				sendErr(out, "bad json")
				continue
			}
			if cm.Identity != "" {
				identity = cm.Identity
			}
			if identity == "" {
				sendErr(out, "missing identity")
				continue
			}

			switch cm.Type {
			case protocol.KindPing:
				// keep-alive; nothing to do

			case protocol.KindJoinQueue:
				h.Inbox() <- JoinQueue{Identity: identity, Outbox: out}

			case protocol.KindLeaveQueue:
				h.Inbox() <- LeaveQueue{Identity: identity}

			case protocol.KindJoinGame:
				reply := make(chan *Room, 1)
				h.Inbox() <- GetRoom{ID: cm.GameID, Reply: reply}
				rm := <-reply
				if rm == nil {
					sendErr(out, "game not found")
					continue
				}
				room = rm
				room.Inbox() <- Join{Identity: identity, Name: displayName(identity), Outbox: out}

			case protocol.KindStartPractice:
				reply := make(chan *Room, 1)
				h.Inbox() <- StartPractice{Identity: identity, Reply: reply}
				room = <-reply
				room.Inbox() <- Join{Identity: identity, Name: displayName(identity), Outbox: out}

			case protocol.KindEndPractice:
				if room != nil {
					room.Inbox() <- Leave{Identity: identity}
					room = nil
				}

			case protocol.KindSubmitWord, protocol.KindSubmitPractice:
				if room != nil {
					room.Inbox() <- Submit{Identity: identity, Word: cm.Word}
				}

			case protocol.KindRequestState:
				if room != nil {
					room.Inbox() <- ReqState{Identity: identity}
				}

			default:
				sendErr(out, "unknown type")
			}
		}
	}
}

func sendErr(out chan protocol.ServerMessage, msg string) {
	deliver(out, protocol.ServerMessage{Type: protocol.KindError, Error: msg})
}

// displayName trims any provider prefix off the identity for UI purposes.
func displayName(identity string) string {
	if i := strings.IndexByte(identity, '|'); i >= 0 {
		return identity[i+1:]
	}
	return identity
}
