// Package service exposes a running network over HTTP.
package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/mosaicnetworks/voronoi/src/node"
	"github.com/mosaicnetworks/voronoi/src/store"
	"github.com/mosaicnetworks/voronoi/src/telemetry"
	"github.com/sirupsen/logrus"
)

// Network is the set of nodes served.
type Network interface {
	Nodes() []*node.Node
	Node(id uint32) (*node.Node, bool)
}

// Service ...
type Service struct {
	sync.Mutex

	bindAddress string
	network     Network
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, network Network, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		network:     network,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/nodes", s.makeHandler(s.GetStatuses))
	s.mux.HandleFunc("/nodes/", s.makeHandler(s.GetNode))
	s.mux.Handle("/metrics", telemetry.MetricsHandler())
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the handler serving every endpoint.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats returns the stats of every node, keyed by site id.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]map[string]string)
	for _, n := range s.network.Nodes() {
		stats[fmt.Sprint(n.ID())] = n.GetStats()
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetStatuses returns the status line of every node.
func (s *Service) GetStatuses(w http.ResponseWriter, r *http.Request) {
	nodes := s.network.Nodes()
	statuses := make([]string, 0, len(nodes))
	for _, n := range nodes {
		statuses = append(statuses, n.Status())
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(statuses)
}

// GetNode returns a live snapshot of one node.
func (s *Service) GetNode(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Path[len("/nodes/"):]

	id, err := strconv.ParseUint(param, 10, 32)

	if err != nil {
		s.logger.WithError(err).Errorf("Parsing node id parameter %s", param)

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	n, ok := s.network.Node(uint32(id))

	if !ok {
		http.Error(w, fmt.Sprintf("unknown node %d", id), http.StatusNotFound)

		return
	}

	data, err := store.NewSnapshot(n).Marshal()

	if err != nil {
		s.logger.WithError(err).Errorf("Encoding snapshot of node %d", id)

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	w.Write(data)
}
