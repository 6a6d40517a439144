package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "tilerealm.dev/internal/persistence/log"
	"tilerealm.dev/internal/persistence/snapshot"
	"tilerealm.dev/internal/sim/catalogs"
	"tilerealm.dev/internal/sim/tuning"
	"tilerealm.dev/internal/sim/world"
	"tilerealm.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		realmID    = flag.String("realm", "realm", "realm id")
		seed       = flag.Int64("seed", 1337, "terrain seed (used only when starting a fresh realm)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (avatars are kept in memory)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	realmDir := filepath.Join(*dataDir, "realms", *realmID)
	_ = os.MkdirAll(realmDir, 0o755)
	snapDir := filepath.Join(realmDir, "snapshots")

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad, err = snapshot.Latest(snapDir)
		if err != nil {
			logger.Fatalf("find latest snapshot: %v", err)
		}
	}

	// Tuning is required for a fresh realm; a snapshot carries its own terrain parameters.
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	idx, err := openRuntimeIndex(realmDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	var avatars world.AvatarStore = world.NewMemoryAvatarStore()
	if idx != nil {
		defer idx.Close()
		avatars = idx
		if err := idx.UpsertCatalogs(context.Background(), cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	cfg := world.ConfigFromTuning(*realmID, *seed, tune)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.RealmID != "" && snap.Header.RealmID != *realmID {
			logger.Fatalf("snapshot realm id mismatch: flag=%s snap=%s", *realmID, snap.Header.RealmID)
		}
		if snap.StructuresDigest != cats.Structures.Digest || snap.RealmDigest != cats.Realm.Digest {
			logger.Printf("snapshot catalogs differ from %s; structures follow the current configs", *configDir)
		}
		cfg = world.ConfigFromSnapshot(cfg, snap)
		n, err := world.ImportAvatars(context.Background(), avatars, snap)
		if err != nil {
			logger.Fatalf("import snapshot avatars: %v", err)
		}
		logger.Printf("resumed from snapshot=%s seed=%d avatars=%d imported=%d", filepath.Base(snapshotToLoad), snap.Seed, len(snap.Avatars), n)
	}

	w, err := world.New(cfg, cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	chunkLog := persistlog.NewChunkLogger(realmDir, logger)
	defer chunkLog.Close()

	snaps := &snapshotter{w: w, avatars: avatars, idx: idx, dir: snapDir, log: logger}
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		snaps.run(ctx, 5*time.Second)
	}()

	wsLogger := log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, *realmID, w.Metrics(), chunkLog, idx)
	})

	if envBool("TR_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				RealmID string             `json:"realm_id"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				RealmID: *realmID,
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if r.Method != http.MethodPost {
				http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			path, err := snaps.write(r.Context())
			if err != nil {
				logger.Printf("admin snapshot: %v", err)
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]string{"snapshot": filepath.Base(path)})
		})
	} else {
		logger.Printf("admin endpoints disabled (TR_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("TR_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, avatars, chunkLog, wsLogger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s realm=%s seed=%d", *addr, *realmID, w.Config().Seed)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	cancel()
	<-snapDone
	if path, err := snaps.write(context.Background()); err != nil {
		logger.Printf("final snapshot: %v", err)
	} else {
		logger.Printf("final snapshot %s", filepath.Base(path))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// writeMetrics renders the minimal Prometheus text exposition format.
func writeMetrics(rw io.Writer, realmID string, m world.WorldMetrics, chunkLog *persistlog.ChunkLogger, idx runtimeIndex) {
	fmt.Fprintf(rw, "# HELP tilerealm_sessions Connected avatar sessions.\n")
	fmt.Fprintf(rw, "# TYPE tilerealm_sessions gauge\n")
	fmt.Fprintf(rw, "tilerealm_sessions{realm=%q} %d\n", realmID, m.Sessions)

	fmt.Fprintf(rw, "# HELP tilerealm_moves_total Accepted MOVE messages.\n")
	fmt.Fprintf(rw, "# TYPE tilerealm_moves_total counter\n")
	fmt.Fprintf(rw, "tilerealm_moves_total{realm=%q} %d\n", realmID, m.Moves)

	fmt.Fprintf(rw, "# HELP tilerealm_chunks_total Chunk loads and evictions across sessions.\n")
	fmt.Fprintf(rw, "# TYPE tilerealm_chunks_total counter\n")
	fmt.Fprintf(rw, "tilerealm_chunks_total{realm=%q,op=%q} %d\n", realmID, "load", m.ChunksLoaded)
	fmt.Fprintf(rw, "tilerealm_chunks_total{realm=%q,op=%q} %d\n", realmID, "unload", m.ChunksUnloaded)

	fmt.Fprintf(rw, "# HELP tilerealm_placements_total Placements generated for loaded tiles.\n")
	fmt.Fprintf(rw, "# TYPE tilerealm_placements_total counter\n")
	fmt.Fprintf(rw, "tilerealm_placements_total{realm=%q} %d\n", realmID, m.Placements)

	fmt.Fprintf(rw, "# HELP tilerealm_layout Static realm layout sizes.\n")
	fmt.Fprintf(rw, "# TYPE tilerealm_layout gauge\n")
	fmt.Fprintf(rw, "tilerealm_layout{realm=%q,kind=%q} %d\n", realmID, "structures", m.Structures)
	fmt.Fprintf(rw, "tilerealm_layout{realm=%q,kind=%q} %d\n", realmID, "path_tiles", m.PathTiles)

	if chunkLog != nil {
		written, failed := chunkLog.Stats()
		fmt.Fprintf(rw, "# HELP tilerealm_chunk_log_events_total Chunk log lines by outcome.\n")
		fmt.Fprintf(rw, "# TYPE tilerealm_chunk_log_events_total counter\n")
		fmt.Fprintf(rw, "tilerealm_chunk_log_events_total{realm=%q,outcome=%q} %d\n", realmID, "written", written)
		fmt.Fprintf(rw, "tilerealm_chunk_log_events_total{realm=%q,outcome=%q} %d\n", realmID, "failed", failed)
	}
	if idx != nil {
		st := idx.Stats()
		fmt.Fprintf(rw, "# HELP tilerealm_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE tilerealm_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "tilerealm_index_queue_depth{realm=%q} %d\n", realmID, st.QueueDepth)
		fmt.Fprintf(rw, "# HELP tilerealm_index_dropped_total Index rows dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE tilerealm_index_dropped_total counter\n")
		fmt.Fprintf(rw, "tilerealm_index_dropped_total{realm=%q} %d\n", realmID, st.DropSnapshotTotal)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
