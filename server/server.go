package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"wastegrid/grid_world"
	"wastegrid/server/cell_views"
	"wastegrid/server/fastview"
	"wastegrid/server/root_view"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
)

const (
	// Time allowed for in-flight requests when the server shuts down.
	shutdownGracePeriod = 5 * time.Second
	readHeaderTimeout   = 5 * time.Second
)

// Server is a read-only observer of a single simulation: it serves a page of
// views of the latest snapshot and pushes their updates to every connected page
// over websocket. Snapshots flow one way; nothing served mutates the simulation.
type Server struct {
	addr   string
	router *mux.Router
	// The page template is parsed once at construction and only executed afterward.
	page     *template.Template
	pageName string
	hub      *hub

	mu     sync.RWMutex
	latest grid_world.Snapshot
}

// NewServer builds the views over @snapshots and the routes that serve them.
// The server's goroutines exit when ctx is done.
func NewServer(
	ctx context.Context,
	addr string,
	initial grid_world.Snapshot,
	snapshots <-chan grid_world.Snapshot,
) (*Server, error) {
	server := &Server{
		addr:   addr,
		latest: initial,
	}

	rootView, err := root_view.NewRootView(ctx, server.track(ctx.Done(), snapshots))
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	page := template.New("index.html")
	if server.pageName, err = rootView.Parse(page); err != nil {
		return nil, fmt.Errorf("parse views: %w", err)
	}
	server.page = page

	server.hub = newHub()
	go server.hub.run(ctx.Done(), rootView.Updates())

	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket).Methods(http.MethodGet)
	router.HandleFunc("/snapshot", server.serveSnapshot).Methods(http.MethodGet)
	server.router = router

	return server, nil
}

// track records each snapshot as the latest before passing it on to the views.
func (server *Server) track(
	done <-chan struct{},
	snapshots <-chan grid_world.Snapshot,
) <-chan grid_world.Snapshot {
	return channerics.Convert(done, snapshots, func(snap grid_world.Snapshot) grid_world.Snapshot {
		server.mu.Lock()
		server.latest = snap
		server.mu.Unlock()
		return snap
	})
}

// Latest returns the most recent snapshot received.
func (server *Server) Latest() grid_world.Snapshot {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.latest
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens on the server's address until ctx is done.
func (server *Server) Serve(ctx context.Context) (err error) {
	srv := &http.Server{
		Addr:              server.addr,
		Handler:           server.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("observer listening on %s\n", server.addr)
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveWebsocket publishes view updates to the client until it disconnects.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	updates, unsubscribe := server.hub.subscribe()
	defer unsubscribe()

	cli, err := fastview.NewClient(updates, w, r)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	if err := cli.Sync(); err != nil {
		log.Println("sync:", err)
	}
}

// Serve the index.html main page, rendered from the latest snapshot.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	board := cell_views.Convert(server.Latest())
	if err := server.page.ExecuteTemplate(w, server.pageName, board); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// serveSnapshot returns the latest snapshot as json.
func (server *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(server.Latest()); err != nil {
		log.Println("snapshot:", err)
	}
}
