// Package ws exposes the tilemap engine, attention scheduler and
// world store to a single external editor shell over a websocket,
// translating internal/protocol frames into calls against their
// public APIs and polling them back into outbound notifications.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tilestream/internal/attention"
	"tilestream/internal/protocol"
	"tilestream/internal/tilemap"
	"tilestream/internal/worldstore"
)

// pollInterval is how often the pollTasks goroutine re-checks task pool
// membership for changes worth pushing to the client, since the
// scheduler exposes pool state only through a synchronous read rather
// than a subscription.
const pollInterval = 150 * time.Millisecond

type Server struct {
	engine    *tilemap.Engine
	scheduler *attention.Scheduler
	store     *worldstore.Store
	validator *protocol.Validator
	log       *log.Logger

	camera *BridgeCamera

	upgrader websocket.Upgrader
}

func NewServer(engine *tilemap.Engine, scheduler *attention.Scheduler, store *worldstore.Store, camera *BridgeCamera, validator *protocol.Validator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[bridge] ", log.LstdFlags)
	}
	return &Server{
		engine:    engine,
		scheduler: scheduler,
		store:     store,
		validator: validator,
		camera:    camera,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Printf("bridge: upgrade: %v", err)
			return
		}
		defer conn.Close()

		out := make(chan []byte, 32)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go s.writer(ctx, conn, out)
		go s.pollTasks(ctx, out)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			s.handleFrame(ctx, msg, out)
		}
	}
}

func (s *Server) writer(ctx context.Context, conn *websocket.Conn, out chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, msg []byte, out chan []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		sendError(out, protocol.ErrBadRequest, "malformed frame")
		return
	}

	var generic any
	if err := json.Unmarshal(msg, &generic); err == nil {
		if err := s.validator.Validate(base.Type, generic); err != nil {
			sendError(out, protocol.ErrSchemaViolation, err.Error())
			return
		}
	}

	switch base.Type {
	case protocol.TypeCameraSample:
		var m protocol.CameraSampleMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			sendError(out, protocol.ErrBadRequest, "bad camera_sample")
			return
		}
		s.camera.update(m.CenterX, m.CenterY, m.Width, m.Height, m.Zoom)
	case protocol.TypeAddTask:
		var m protocol.AddTaskMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			sendError(out, protocol.ErrBadRequest, "bad add_task")
			return
		}
		if _, err := s.scheduler.AddTask(ctx, attention.AddTaskParams{Kind: m.Kind, Cost: m.Cost, DurationMs: m.DurationMs}); err != nil {
			sendError(out, protocol.ErrRejectedTask, err.Error())
		}
	case protocol.TypeSetTile:
		var m protocol.SetTileMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			sendError(out, protocol.ErrBadRequest, "bad set_tile")
			return
		}
		if err := s.engine.UpdateTile(ctx, m.X, m.Y, tilemap.TileIndex(m.Index)); err != nil {
			sendError(out, protocol.ErrInternal, err.Error())
			return
		}
		send(out, protocol.TileUpdatedMsg{
			BaseMessage: protocol.BaseMessage{Type: protocol.TypeTileUpdated, ProtocolVersion: protocol.Version},
			X:           m.X, Y: m.Y, Index: m.Index,
		})
	default:
		sendError(out, protocol.ErrUnknownType, base.Type)
	}
}

// pollTasks pushes task_event frames whenever a task's pool membership
// changes, reading pool membership from worldstore.Store.GetAllTasks
// since attention.Scheduler offers no push-based subscription.
func (s *Server) pollTasks(ctx context.Context, out chan []byte) {
	last := make(map[attention.TaskID]string)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := s.store.GetAllTasks(ctx)
			if err != nil {
				continue
			}
			seen := make(map[attention.TaskID]bool)
			report := func(id attention.TaskID, pool string) {
				seen[id] = true
				if last[id] == pool {
					return
				}
				last[id] = pool
				send(out, protocol.TaskEventMsg{
					BaseMessage: protocol.BaseMessage{Type: protocol.TypeTaskEvent, ProtocolVersion: protocol.Version},
					TaskID:      string(id),
					Pool:        pool,
				})
			}
			for _, t := range snap.Active {
				report(attention.TaskID(t.ID), "active")
			}
			for _, t := range snap.Resumed {
				report(attention.TaskID(t.ID), "resumed")
			}
			for _, t := range snap.Pending {
				report(attention.TaskID(t.ID), "pending")
			}
			for _, t := range snap.Paused {
				report(attention.TaskID(t.ID), "paused")
			}
			for id := range last {
				if !seen[id] {
					delete(last, id)
				}
			}
		}
	}
}

func send(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func sendError(out chan []byte, code, message string) {
	send(out, protocol.NewError(code, message))
}
