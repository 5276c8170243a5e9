package handlers

import (
	"net/http"
	"sort"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// UniverseHandler serves the configured sector universe
type UniverseHandler struct {
	universe *contracts.Universe
}

// NewUniverseHandler creates a new universe handler
func NewUniverseHandler(u *contracts.Universe) *UniverseHandler {
	return &UniverseHandler{universe: u}
}

// SectorsResponse lists selectable sectors and comparison keys
type SectorsResponse struct {
	Sectors        []contracts.SectorSpec `json:"sectors"`
	CompareSectors []string               `json:"compare_sectors"`
	CompareCrypto  []string               `json:"compare_crypto"`
}

// GetSectors returns the universe
// GET /api/sectors
func (h *UniverseHandler) GetSectors(w http.ResponseWriter, r *http.Request) {
	crypto := make([]string, 0, len(h.universe.Compare.Crypto))
	for key := range h.universe.Compare.Crypto {
		crypto = append(crypto, key)
	}
	sort.Strings(crypto)

	respondJSON(w, http.StatusOK, SectorsResponse{
		Sectors:        h.universe.Sectors,
		CompareSectors: h.universe.Compare.CompareSectors(),
		CompareCrypto:  crypto,
	})
}
