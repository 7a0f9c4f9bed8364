// Package httpapi exposes the topic log over HTTP: creating topics,
// appending opaque records, and streaming them back out.
package httpapi

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tomcumming/simples/internal/disklog"
	"github.com/tomcumming/simples/internal/query"
	"github.com/tomcumming/simples/internal/topicdir"
	"github.com/tomcumming/simples/internal/topicname"
	"github.com/tomcumming/simples/internal/version"
)

// Server is the HTTP front end over a topicdir.Dir.
type Server struct {
	addr    string
	dir     *topicdir.Dir
	server  *http.Server
	logger  *slog.Logger
	started time.Time
}

// New builds a Server listening on addr, logging at logLevel ("debug",
// "info", "warn", or "error").
func New(addr string, dir *topicdir.Dir, logLevel string) *Server {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(log.Writer(), &slog.HandlerOptions{Level: level}))

	return &Server{addr: addr, dir: dir, logger: logger, started: time.Now()}
}

// Start runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           corsMiddleware(s.loggingMiddleware(s.routes())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/topics/{topic}", s.handleCreateTopic).Methods(http.MethodPost)
	r.HandleFunc("/topics/{topic}/records", s.handleAppendRecord).Methods(http.MethodPost)
	r.HandleFunc("/topics/{topic}/records", s.handleReadRecords).Methods(http.MethodGet)
	return r
}

// corsMiddleware adds permissive CORS headers so the API can be driven
// from a browser-based client during development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Flush passes through to the wrapped writer so streaming handlers can
// still flush when wrapped by loggingMiddleware.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// loggingMiddleware logs one structured line per request, tagged with a
// freshly generated request ID (a new UUID for every request).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sr, r)

		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Simples ver. %s\n", version.Version)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func parseTopicName(r *http.Request) (topicname.Name, error) {
	return topicname.Parse(mux.Vars(r)["topic"])
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	name, err := parseTopicName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic name")
		return
	}

	if err := s.dir.CreateTopic(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type appendResponse struct {
	Position disklog.LogPosition `json:"position"`
}

func (s *Server) handleAppendRecord(w http.ResponseWriter, r *http.Request) {
	name, err := parseTopicName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic name")
		return
	}

	pos, err := s.dir.Append(r.Context(), name, r.Body)
	if err != nil {
		if errors.Is(err, topicdir.ErrTopicDoesNotExist) {
			writeError(w, http.StatusNotFound, "topic does not exist")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/topics/%s/records?from=%d", name.String(), pos))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(appendResponse{Position: pos})
}

// readOptions is the parsed form of a GET .../records query string.
type readOptions struct {
	from        disklog.LogPosition
	endBefore   *disklog.LogPosition
	endAfter    *disklog.LogPosition
	maxItems    *uint64
	waitForMore bool
}

func parseReadOptions(raw string) (readOptions, error) {
	parsed, err := query.Parse(raw)
	if err != nil {
		return readOptions{}, err
	}

	opts := readOptions{}
	for k, v := range parsed {
		switch k {
		case "from":
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return readOptions{}, err
			}
			opts.from = n
		case "end_before":
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return readOptions{}, err
			}
			opts.endBefore = &n
		case "end_after":
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return readOptions{}, err
			}
			opts.endAfter = &n
		case "max_items":
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return readOptions{}, err
			}
			opts.maxItems = &n
		case "wait_for_more":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return readOptions{}, err
			}
			opts.waitForMore = b
		default:
			return readOptions{}, fmt.Errorf("httpapi: unknown query parameter %q", k)
		}
	}
	return opts, nil
}

// atEnd reports whether reader has reached a caller-specified stopping
// point, independent of whether the log itself has more data.
func (o readOptions) atEnd(pos disklog.LogPosition) bool {
	if o.maxItems != nil && *o.maxItems == 0 {
		return true
	}
	if o.endBefore != nil && pos >= *o.endBefore {
		return true
	}
	if o.endAfter != nil && *o.endAfter < pos {
		return true
	}
	return false
}

// handleReadRecords streams matching records as
// position(8 LE) | length(4 LE) | payload, flushing after each so a
// wait_for_more=true caller observes new records as they're appended.
func (s *Server) handleReadRecords(w http.ResponseWriter, r *http.Request) {
	name, err := parseTopicName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic name")
		return
	}

	opts, err := parseReadOptions(r.URL.RawQuery)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query string")
		return
	}

	reader, err := s.dir.OpenReader(name, opts.from)
	if err != nil {
		if errors.Is(err, topicdir.ErrTopicDoesNotExist) {
			writeError(w, http.StatusNotFound, "topic does not exist")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer reader.Close()

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)

	delivered := uint64(0)
	for {
		if opts.atEnd(reader.Position()) {
			return
		}

		next, err := reader.Next(r.Context(), opts.waitForMore)
		if err != nil {
			s.logger.Error("read stream aborted", "error", err.Error())
			return
		}
		if next.IsEnd() {
			return
		}

		var header [12]byte
		binary.LittleEndian.PutUint64(header[0:8], next.Item.Position())
		binary.LittleEndian.PutUint32(header[8:12], next.Item.Len())
		if _, err := w.Write(header[:]); err != nil {
			next.Item.Finish()
			return
		}
		if _, err := writeAll(w, next.Item); err != nil {
			next.Item.Finish()
			return
		}
		reader = next.Item.Finish()

		if flusher != nil {
			flusher.Flush()
		}

		delivered++
		if opts.maxItems != nil && delivered >= *opts.maxItems {
			return
		}
	}
}

func writeAll(w http.ResponseWriter, item *disklog.LogItem) (int, error) {
	buf := make([]byte, 32*1024)
	total := 0
	for {
		n, err := item.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += n
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, err
		}
	}
}
