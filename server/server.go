// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/idiap/twister/generichttp"
)

// Graph maps the stem each device is mounted at to the routes it serves
type Graph struct {
	mu    sync.RWMutex
	nodes map[string][]string
}

// NewGraph returns an empty Graph
func NewGraph() *Graph {
	return &Graph{nodes: map[string][]string{}}
}

// Add records the routes of h under stem
func (g *Graph) Add(stem string, h generichttp.HTTPer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[stem] = h.RT().Endpoints()
}

// Stems returns the number of stems in the graph
func (g *Graph) Stems() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// HTTPList writes the graph as JSON
func (g *Graph) HTTPList(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(g.nodes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
