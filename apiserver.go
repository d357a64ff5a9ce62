/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cascade

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// SetupAPIRouter builds the HTTP control plane's router, following the
// teacher's SetupAPIRouter (apirouters.go): one mux.Router, one
// X-API-Key-gated subrouter, one POST endpoint per external operation
// (spec §6). Cascade's surface is the five core operations rather than
// the teacher's much larger agent/combiner/MUSIC API set.
func SetupAPIRouter(conf *Config) (*mux.Router, error) {
	apikey := conf.Apiserver.ApiKey
	if apikey == "" {
		return nil, fmt.Errorf("cascade: apiserver.apikey is not set")
	}
	e := conf.Internal.Engine

	r := mux.NewRouter().StrictSlash(true)
	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", apikey).Subrouter()

	sr.HandleFunc("/zone/refresh", apiEnqueueRefresh(e)).Methods("POST")
	sr.HandleFunc("/zone/source", apiSetSource(e)).Methods("POST")
	sr.HandleFunc("/zone/approve", apiMarkApproved(e)).Methods("POST")
	sr.HandleFunc("/zone/remove", apiRemoveZone(e)).Methods("POST")
	sr.HandleFunc("/status", apiStatus(e)).Methods("POST")

	return r, nil
}

// WalkRoutes logs every route the router serves, the same startup
// diagnostic as the teacher's WalkRoutes (apirouters.go).
func WalkRoutes(router *mux.Router, address string) {
	log.Printf("cascade: apiserver: endpoints on %s", address)
	walker := func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		for _, m := range methods {
			log.Printf("%-6s %s", m, path)
		}
		return nil
	}
	if err := router.Walk(walker); err != nil {
		log.Printf("cascade: apiserver: route walk error: %v", err)
	}
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("cascade: apiserver: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apiError{Error: err.Error()})
}

type refreshRequest struct {
	Zone   string `json:"zone"`
	Reload bool   `json:"reload"`
}

func apiEnqueueRefresh(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := e.EnqueueRefresh(req.Zone, req.Reload); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type setSourceRequest struct {
	Zone    string `json:"zone"`
	Kind    string `json:"kind"` // "none", "local_file", "primary"
	Primary string `json:"primary,omitempty"`
	Path    string `json:"path,omitempty"`
	TsigKey string `json:"tsig_key,omitempty"`
}

func apiSetSource(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var src Source
		switch req.Kind {
		case "primary":
			src = Source{Kind: SourcePrimary, Primary: req.Primary, TSIGName: req.TsigKey}
		case "local_file":
			src = Source{Kind: SourceLocalFile, Path: req.Path}
		case "none", "":
			src = Source{Kind: SourceNone}
		default:
			writeError(w, http.StatusBadRequest, fmt.Errorf("cascade: unknown source kind %q", req.Kind))
			return
		}
		if err := e.SetSource(req.Zone, src); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type approveRequest struct {
	Zone  string `json:"zone"`
	Stage string `json:"stage"` // "Unsigned", "Signed", "Whole", "Resign"
}

func apiMarkApproved(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req approveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		stage, err := parseReviewStage(req.Stage)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := e.MarkApproved(req.Zone, stage); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func parseReviewStage(s string) (ReviewStage, error) {
	switch s {
	case "Unsigned":
		return StageUnsigned, nil
	case "Signed":
		return StageSigned, nil
	case "Whole":
		return StageWhole, nil
	case "Resign":
		return StageResign, nil
	default:
		return 0, fmt.Errorf("cascade: unknown review stage %q", s)
	}
}

type removeRequest struct {
	Zone string `json:"zone"`
}

func apiRemoveZone(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req removeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := e.RemoveZone(req.Zone); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type statusRequest struct {
	Zone string `json:"zone,omitempty"`
}

func apiStatus(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Zone != "" {
			st, err := e.Status(req.Zone)
			if err != nil {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeJSON(w, http.StatusOK, st)
			return
		}
		writeJSON(w, http.StatusOK, e.StatusAll())
	}
}
