package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	AvatarName      string     `json:"avatar_name"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

// HelloAuth carries a resume token from an earlier WELCOME.
type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	AvatarID        string         `json:"avatar_id"`
	ResumeToken     string         `json:"resume_token"`
	RealmParams     RealmParams    `json:"realm_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Spawn           [2]int         `json:"spawn"`
	Peers           []PeerRef      `json:"peers"`
}

type RealmParams struct {
	RealmID      string `json:"realm_id"`
	Seed         int64  `json:"seed"`
	TileSize     int    `json:"tile_size"`
	Viewport     [2]int `json:"viewport"` // tiles, width then height
	EvictDivisor int    `json:"evict_divisor"`
}

type CatalogDigests struct {
	Structures DigestRef `json:"structures"`
	Realm      DigestRef `json:"realm"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// PeerRef is another avatar's last known tile.
type PeerRef struct {
	AvatarID string `json:"avatar_id"`
	Name     string `json:"name"`
	Tile     [2]int `json:"tile"`
}

// MOVE (client -> server). X and Y are world pixels.
type MoveMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
}

// CHUNKS (server -> client): the answer to a MOVE.
type ChunksMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tile            [2]int      `json:"tile"`
	Loaded          []ChunkData `json:"loaded"`
	Unloaded        []ChunkRef  `json:"unloaded"`
}

type ChunkRef struct {
	Key [2]int `json:"key"`
	Min [2]int `json:"min"` // inclusive tile corner
	Max [2]int `json:"max"`
}

type ChunkData struct {
	ChunkRef
	Placements []PlacementData `json:"placements"`
}

type PlacementData struct {
	Tile       [2]int  `json:"tile"`
	PX         float64 `json:"px"`
	PY         float64 `json:"py"`
	Image      string  `json:"image"`
	Layer      string  `json:"layer"`
	Solid      bool    `json:"solid,omitempty"`
	Annotation string  `json:"annotation,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
