package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"roomsim/internal/persistence/indexdb"
)

// episodesHandler serves the recent-episode listing from the index, for
// quick inspection while a batch of evaluations runs.
func episodesHandler(idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		idx.Flush()
		rows, err := idx.Episodes(limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"episodes": rows})
	}
}
