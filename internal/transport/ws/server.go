package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tilerealm.dev/internal/protocol"
	"tilerealm.dev/internal/sim/world"
	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/terrain/store"
)

const (
	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
	outQueue         = 16
	maxNameLen       = 64
)

type Server struct {
	world    *world.World
	avatars  world.AvatarStore
	observer world.ChunkObserver
	log      *log.Logger

	upgrader websocket.Upgrader
	now      func() time.Time

	mu   sync.Mutex
	live map[string]struct{} // avatar IDs with an open session
}

// NewServer serves one session per connection. observer may be nil.
func NewServer(w *world.World, avatars world.AvatarStore, observer world.ChunkObserver, logger *log.Logger) *Server {
	if avatars == nil {
		avatars = world.NewMemoryAvatarStore()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ws] ", log.LstdFlags)
	}
	return &Server{
		world:    w,
		avatars:  avatars,
		observer: observer,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		now:  time.Now,
		live: map[string]struct{}{},
	}
}

// claim marks id as connected. It reports false if another connection
// already holds it.
func (s *Server) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[id]; ok {
		return false
	}
	s.live[id] = struct{}{}
	return true
}

func (s *Server) release(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

// conn is the per-connection state owned by the reader goroutine.
type conn struct {
	ws      *websocket.Conn
	session *world.Session
	token   string
	out     chan []byte
	ctx     context.Context
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer wsConn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c, spawn := s.handshake(ctx, wsConn)
		if c == nil {
			return
		}
		c.ctx = ctx
		defer s.leave(c)

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-c.out:
					_ = wsConn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := wsConn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		s.move(c, spawn)

		// Reader loop.
		for {
			_ = wsConn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := wsConn.ReadMessage()
			if err != nil {
				break
			}
			s.handle(c, msg)
		}
		cancel()
		<-done
	}
}

func (s *Server) handle(c *conn, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.sendError(c, protocol.ErrProtoBadRequest, "malformed JSON")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.sendError(c, protocol.ErrProtoBadRequest, "bad protocol_version")
		return
	}
	switch base.Type {
	case protocol.TypeMove:
		var mv protocol.MoveMsg
		if err := json.Unmarshal(msg, &mv); err != nil {
			s.sendError(c, protocol.ErrBadRequest, "bad MOVE: "+err.Error())
			return
		}
		s.move(c, atlas.Of(mv.X, mv.Y))
	default:
		s.sendError(c, protocol.ErrBadRequest, "unsupported message type "+base.Type)
	}
}

func (s *Server) move(c *conn, pos atlas.Coordinate) {
	d, err := c.session.Move(pos)
	if err != nil {
		if errors.Is(err, world.ErrInvalidPosition) {
			s.sendError(c, protocol.ErrInvalidTarget, err.Error())
			return
		}
		s.log.Printf("move %s: %v", c.session.Avatar().ID, err)
		s.sendError(c, protocol.ErrInternal, "move failed")
		return
	}
	s.send(c, s.chunksMsg(c.session, d))
}

func (s *Server) chunksMsg(sess *world.Session, d world.Delta) protocol.ChunksMsg {
	t, _ := sess.Avatar().Tile()
	msg := protocol.ChunksMsg{
		Type:            protocol.TypeChunks,
		ProtocolVersion: protocol.Version,
		Tile:            [2]int{t.X, t.Y},
		Loaded:          make([]protocol.ChunkData, 0, len(d.Loaded)),
		Unloaded:        make([]protocol.ChunkRef, 0, len(d.Unloaded)),
	}
	for _, cp := range d.Loaded {
		cd := protocol.ChunkData{
			ChunkRef:   chunkRef(sess, cp.Chunk),
			Placements: make([]protocol.PlacementData, 0, len(cp.Placements)),
		}
		for _, p := range cp.Placements {
			cd.Placements = append(cd.Placements, protocol.PlacementData{
				Tile:       [2]int{p.Tile.X, p.Tile.Y},
				PX:         p.PixelX,
				PY:         p.PixelY,
				Image:      string(p.Image),
				Layer:      string(p.Layer),
				Solid:      p.Solid,
				Annotation: string(p.Annotation),
			})
		}
		msg.Loaded = append(msg.Loaded, cd)
	}
	for _, k := range d.Unloaded {
		msg.Unloaded = append(msg.Unloaded, chunkRef(sess, k))
	}
	return msg
}

func chunkRef(sess *world.Session, k store.ChunkKey) protocol.ChunkRef {
	b := sess.ChunkBound(k)
	bl, tr := b.BottomLeft(), b.TopRight()
	return protocol.ChunkRef{
		Key: [2]int{k.CX, k.CY},
		Min: [2]int{int(bl.X), int(bl.Y)},
		Max: [2]int{int(tr.X), int(tr.Y)},
	}
}

func (s *Server) handshake(ctx context.Context, wsConn *websocket.Conn) (*conn, atlas.Coordinate) {
	_ = wsConn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := wsConn.ReadMessage()
	if err != nil {
		return nil, atlas.Coordinate{}
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(wsConn, "expected HELLO")
		return nil, atlas.Coordinate{}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closePolicy(wsConn, "bad HELLO")
		return nil, atlas.Coordinate{}
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(wsConn, "bad protocol_version")
		return nil, atlas.Coordinate{}
	}
	name := strings.TrimSpace(hello.AvatarName)
	if name == "" {
		name = "avatar"
	}
	name = truncateName(name, maxNameLen)

	cfg := s.world.Config()
	spawn := world.TileToWorld(s.world.Catalogs().Realm.Spawn, cfg.TileSize)

	// Optional: resume an existing avatar (reconnect).
	var rec world.AvatarRecord
	resumed := false
	if hello.Auth != nil {
		if tok := strings.TrimSpace(hello.Auth.Token); tok != "" {
			r, ok, err := s.avatars.ByResumeToken(ctx, tok)
			if err != nil {
				s.log.Printf("resume lookup: %v", err)
			}
			if ok {
				rec, resumed = r, true
				spawn = r.Position()
			}
		}
	}
	if !resumed {
		rec = world.AvatarRecord{
			ID:          uuid.NewString(),
			Name:        name,
			ResumeToken: "resume_" + uuid.NewString(),
		}
	}

	if !s.claim(rec.ID) {
		s.log.Printf("avatar %s already connected; rejecting resume", rec.ID)
		closePolicy(wsConn, "avatar already connected")
		return nil, atlas.Coordinate{}
	}

	avatar := world.NewAvatar(rec.ID, rec.Name, cfg.TileSize)
	sess, err := s.world.NewSession(avatar, s.observer)
	if err != nil {
		s.release(rec.ID)
		s.log.Printf("new session: %v", err)
		closePolicy(wsConn, "session unavailable")
		return nil, atlas.Coordinate{}
	}
	token := rec.ResumeToken
	avatar.OnTileChange(func(_, _ atlas.Tile) {
		if err := s.avatars.UpsertAvatar(ctx, avatar.Record(token, s.now())); err != nil {
			s.log.Printf("store avatar %s: %v", avatar.ID, err)
		}
	})

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AvatarID:        rec.ID,
		ResumeToken:     rec.ResumeToken,
		RealmParams: protocol.RealmParams{
			RealmID:      cfg.ID,
			Seed:         cfg.Seed,
			TileSize:     cfg.TileSize,
			Viewport:     [2]int{cfg.ViewportWidth, cfg.ViewportHeight},
			EvictDivisor: cfg.EvictDivisor,
		},
		Catalogs: s.catalogDigests(),
		Spawn:    tileOf(spawn, cfg.TileSize),
		Peers:    s.peers(ctx, rec.ID),
	}
	if err := writeJSON(wsConn, welcome); err != nil {
		sess.Close()
		s.release(rec.ID)
		return nil, atlas.Coordinate{}
	}
	s.log.Printf("avatar %s (%s) joined resumed=%v", rec.ID, rec.Name, resumed)

	return &conn{
		ws:      wsConn,
		session: sess,
		token:   token,
		out:     make(chan []byte, outQueue),
	}, spawn
}

func (s *Server) catalogDigests() protocol.CatalogDigests {
	cats := s.world.Catalogs()
	return protocol.CatalogDigests{
		Structures: protocol.DigestRef{Digest: cats.Structures.Digest, Count: len(cats.Structures.ByID)},
		Realm:      protocol.DigestRef{Digest: cats.Realm.Digest, Count: len(cats.Realm.Layout.Structures)},
	}
}

func (s *Server) peers(ctx context.Context, self string) []protocol.PeerRef {
	all, err := s.avatars.Avatars(ctx)
	if err != nil {
		s.log.Printf("list avatars: %v", err)
		return []protocol.PeerRef{}
	}
	ts := s.world.Config().TileSize
	out := make([]protocol.PeerRef, 0, len(all))
	for _, r := range all {
		if r.ID == self {
			continue
		}
		out = append(out, protocol.PeerRef{AvatarID: r.ID, Name: r.Name, Tile: tileOf(r.Position(), ts)})
	}
	return out
}

func (s *Server) leave(c *conn) {
	a := c.session.Avatar()
	if a.Placed() {
		if err := s.avatars.UpsertAvatar(context.Background(), a.Record(c.token, s.now())); err != nil {
			s.log.Printf("store avatar %s: %v", a.ID, err)
		}
	}
	c.session.Close()
	s.release(a.ID)
	s.log.Printf("avatar %s left", a.ID)
}

func (s *Server) send(c *conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("marshal: %v", err)
		return
	}
	select {
	case c.out <- b:
	case <-c.ctx.Done():
	}
}

func (s *Server) sendError(c *conn, code, message string) {
	s.send(c, protocol.NewError(code, message))
}

// truncateName cuts name to at most limit bytes without splitting a rune.
func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	cut := 0
	for i := range name {
		if i > limit {
			break
		}
		cut = i
	}
	return name[:cut]
}

func tileOf(c atlas.Coordinate, tileSize int) [2]int {
	t := world.WorldToTile(c, tileSize)
	return [2]int{t.X, t.Y}
}

func closePolicy(wsConn *websocket.Conn, reason string) {
	_ = wsConn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(wsConn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = wsConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wsConn.WriteMessage(websocket.TextMessage, b)
}
