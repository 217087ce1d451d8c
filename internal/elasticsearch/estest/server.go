// Package estest provides an in-process stand-in for the parts of the
// Elasticsearch REST API the simulator uses: cluster info, index exists/create
// and _bulk.
package estest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

type Server struct {
	*httptest.Server

	mu           sync.Mutex
	mappings     map[string]json.RawMessage
	docs         map[string][]json.RawMessage
	createCalls  int
	bulkRequests int
	authHeaders  []string
	rejectDoc    func(index string, doc []byte) bool
	failCreate   bool
	failInfo     bool
	bulkStatus   int
}

func NewServer() *Server {
	s := &Server{
		mappings: make(map[string]json.RawMessage),
		docs:     make(map[string][]json.RawMessage),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// RejectDocs makes the bulk endpoint fail documents matching fn with a
// mapper_parsing_exception.
func (s *Server) RejectDocs(fn func(index string, doc []byte) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectDoc = fn
}

// FailCreate makes index creation answer 500.
func (s *Server) FailCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate = true
}

// FailInfo makes the root endpoint answer 401.
func (s *Server) FailInfo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInfo = true
}

// FailBulk makes every _bulk request answer with status instead of item results.
func (s *Server) FailBulk(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkStatus = status
}

// Preload marks index as existing with the given mapping body.
func (s *Server) Preload(index string, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[index] = json.RawMessage(body)
}

func (s *Server) Mapping(index string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[index]
	return m, ok
}

func (s *Server) Docs(index string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.docs[index]...)
}

func (s *Server) CreateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCalls
}

func (s *Server) BulkRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bulkRequests
}

func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	s.mu.Lock()
	s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
	s.mu.Unlock()

	path := strings.Trim(r.URL.Path, "/")
	switch {
	case path == "" && r.Method == http.MethodGet:
		s.info(w)
	case path == "_bulk" || strings.HasSuffix(path, "/_bulk"):
		s.bulk(w, r, strings.TrimSuffix(strings.TrimSuffix(path, "_bulk"), "/"))
	case !strings.Contains(path, "/") && r.Method == http.MethodHead:
		s.exists(w, path)
	case !strings.Contains(path, "/") && r.Method == http.MethodPut:
		s.create(w, r, path)
	default:
		writeError(w, http.StatusNotFound, "illegal_argument_exception", "unsupported request "+r.Method+" "+r.URL.Path)
	}
}

func (s *Server) info(w http.ResponseWriter) {
	s.mu.Lock()
	fail := s.failInfo
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusUnauthorized, "security_exception", "unable to authenticate with provided credentials")
		return
	}
	fmt.Fprint(w, `{"name":"estest","cluster_name":"estest","cluster_uuid":"estest","version":{"number":"8.18.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
}

func (s *Server) exists(w http.ResponseWriter, index string) {
	s.mu.Lock()
	_, ok := s.mappings[index]
	s.mu.Unlock()
	if ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, index string) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failCreate {
		writeError(w, http.StatusInternalServerError, "exception", "create failed")
		return
	}
	if _, ok := s.mappings[index]; ok {
		writeError(w, http.StatusBadRequest, "resource_already_exists_exception", "index ["+index+"] already exists")
		return
	}
	s.mappings[index] = json.RawMessage(body)
	fmt.Fprintf(w, `{"acknowledged":true,"shards_acknowledged":true,"index":%q}`, index)
}

func (s *Server) bulk(w http.ResponseWriter, r *http.Request, pathIndex string) {
	s.mu.Lock()
	s.bulkRequests++
	reject := s.rejectDoc
	failStatus := s.bulkStatus
	s.mu.Unlock()

	if failStatus != 0 {
		writeError(w, failStatus, "security_exception", "bulk request rejected")
		return
	}

	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var items []map[string]interface{}
	hasErrors := false
	for scanner.Scan() {
		meta := bytes.TrimSpace(scanner.Bytes())
		if len(meta) == 0 {
			continue
		}
		var action map[string]map[string]interface{}
		if err := json.Unmarshal(meta, &action); err != nil {
			writeError(w, http.StatusBadRequest, "parse_exception", err.Error())
			return
		}
		if !scanner.Scan() {
			writeError(w, http.StatusBadRequest, "parse_exception", "missing document line")
			return
		}
		doc := append([]byte(nil), scanner.Bytes()...)

		for op, params := range action {
			index := pathIndex
			if v, ok := params["_index"].(string); ok && v != "" {
				index = v
			}
			if reject != nil && reject(index, doc) {
				hasErrors = true
				items = append(items, map[string]interface{}{op: map[string]interface{}{
					"_index": index,
					"status": http.StatusBadRequest,
					"error": map[string]interface{}{
						"type":   "mapper_parsing_exception",
						"reason": "failed to parse document",
					},
				}})
				continue
			}

			s.mu.Lock()
			s.docs[index] = append(s.docs[index], json.RawMessage(doc))
			id := len(s.docs[index])
			s.mu.Unlock()
			items = append(items, map[string]interface{}{op: map[string]interface{}{
				"_index":   index,
				"_id":      fmt.Sprintf("%d", id),
				"status":   http.StatusCreated,
				"result":   "created",
				"_version": 1,
			}})
		}
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"took":   1,
		"errors": hasErrors,
		"items":  items,
	})
}

func writeError(w http.ResponseWriter, status int, errType, reason string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"type":   errType,
			"reason": reason,
		},
		"status": status,
	})
}
