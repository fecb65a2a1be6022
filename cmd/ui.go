package cmd

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/wordlens/internal/config"
	"github.com/lehigh-university-libraries/wordlens/internal/utils"
	"github.com/lehigh-university-libraries/wordlens/pkg/interaction"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/render"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewer"
)

//go:embed static/index.html
var indexHTML []byte

const maxUploadSize = 32 << 20

var (
	daemonPort string
	daemonHost string
	uiOCR      ocrFlags
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the word selection web interface",
	Long: `Start a web server with a canvas that shows an image and its OCR boxes.
Drag to pan, wheel to zoom, ctrl-drag to select words.`,
	RunE: runDaemon,
}

func init() {
	RootCmd.AddCommand(uiCmd)
	uiCmd.Flags().StringVar(&daemonPort, "port", "8888", "Port to run the web server on")
	uiCmd.Flags().StringVar(&daemonHost, "host", "localhost", "Host to bind the web server to")
	addOCRFlags(uiCmd, &uiOCR)
}

// uiServer serves one viewer session to the browser page.
type uiServer struct {
	// ctx outlives requests; analyses started by an upload run under it.
	ctx      context.Context
	session  *viewer.Session
	store    *config.Store
	notifier *ocr.StatusNotifier
}

func runDaemon(cmd *cobra.Command, args []string) error {
	slog.Info("Starting wordlens daemon", "host", daemonHost, "port", daemonPort)

	notifier := &ocr.StatusNotifier{}
	session, store, err := newSession(cmd, sessionParams{
		ocr:      uiOCR,
		notifier: notifier,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	u := &uiServer{ctx: ctx, session: session, store: store, notifier: notifier}

	addr := fmt.Sprintf("%s:%s", daemonHost, daemonPort)
	srv := &http.Server{Addr: addr, Handler: u.routes(), ReadHeaderTimeout: 10 * time.Second}

	g.Go(func() error {
		slog.Info("wordlens interface available", "url", fmt.Sprintf("http://%s", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return session.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (u *uiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", u.handleIndex)
	mux.HandleFunc("/api/image", u.handleImage)
	mux.HandleFunc("/api/refresh", u.handleRefresh)
	mux.HandleFunc("/api/events", u.handleEvents)
	mux.HandleFunc("/api/resize", u.handleResize)
	mux.HandleFunc("/api/frame.png", u.handleFrame)
	mux.HandleFunc("/api/status", u.handleStatus)
	mux.HandleFunc("/api/settings", u.handleSettings)
	return mux
}

func (u *uiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (u *uiServer) handleImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case "POST":
	case "DELETE":
		u.session.ClearImage()
		json.NewEncoder(w).Encode(u.session.Status())
		return
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	var (
		data []byte
		err  error
	)
	if file, _, ferr := r.FormFile("file"); ferr == nil {
		defer file.Close()
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		respondWithError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := u.session.LoadImage(u.ctx, data); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(u.session.Status())
}

func (u *uiServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if _, err := u.session.Refresh(u.ctx); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, viewer.ErrNoImage) {
			status = http.StatusConflict
		}
		respondWithError(w, err.Error(), status)
		return
	}
	json.NewEncoder(w).Encode(u.session.Status())
}

// handleEvents accepts one event or an array of events.
func (u *uiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondWithError(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	var events []viewer.Event
	if err := json.Unmarshal(body, &events); err != nil {
		var single viewer.Event
		if err := json.Unmarshal(body, &single); err != nil {
			respondWithError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		events = []viewer.Event{single}
	}

	results := make([]viewer.EventResult, 0, len(events))
	for _, ev := range events {
		res, err := u.session.Dispatch(ev)
		if err != nil {
			respondWithError(w, err.Error(), http.StatusBadRequest)
			return
		}
		results = append(results, res)
	}

	json.NewEncoder(w).Encode(struct {
		Results []viewer.EventResult `json:"results"`
		Keyword string               `json:"keyword"`
	}{results, u.session.Host().Text()})
}

func (u *uiServer) handleResize(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Width        int     `json:"width"`
		Height       int     `json:"height"`
		Left         float64 `json:"left"`
		Top          float64 `json:"top"`
		ClientWidth  float64 `json:"clientWidth"`
		ClientHeight float64 `json:"clientHeight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		http.Error(w, "width and height must be positive", http.StatusBadRequest)
		return
	}

	u.session.Resize(req.Width, req.Height)
	if req.ClientWidth > 0 && req.ClientHeight > 0 {
		u.session.SetClientRect(req.Left, req.Top, req.ClientWidth, req.ClientHeight)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u.session.Status())
}

func (u *uiServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	frame, err := u.session.Frame()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(frame)
}

type uiStatus struct {
	viewer.Status
	Loading bool   `json:"loading"`
	Toast   string `json:"toast,omitempty"`
}

func (u *uiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	loading, message := u.notifier.Status()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uiStatus{
		Status:  u.session.Status(),
		Loading: loading,
		Toast:   utils.MaskSensitiveData(message),
	})
}

// uiSettings is the settings form. Mode is the effective mode; when
// WORDLENS_MODE pins it, SavedMode is what the file holds.
type uiSettings struct {
	Mode       string `json:"mode"`
	SavedMode  string `json:"savedMode,omitempty"`
	ModePinned bool   `json:"modePinned,omitempty"`
	ShowLines  bool   `json:"showLines"`
	ShowWords  bool   `json:"showWords"`
}

func (u *uiServer) currentSettings() uiSettings {
	opts := u.session.RenderOptions()
	return uiSettings{
		Mode:       u.store.WordSelectionMode().String(),
		SavedMode:  u.store.File().WordSelectionMode,
		ModePinned: u.store.ModePinned(),
		ShowLines:  opts.ShowLines,
		ShowWords:  opts.ShowWords,
	}
}

func (u *uiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case "GET":
		json.NewEncoder(w).Encode(u.currentSettings())
	case "PUT":
		var req uiSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		mode, err := interaction.ParseSelectionMode(req.Mode)
		if err != nil {
			respondWithError(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = u.store.Update(func(s *config.Settings) error {
			s.WordSelectionMode = mode.String()
			s.ShowLineBoxes = req.ShowLines
			s.ShowWordBoxes = req.ShowWords
			return nil
		})
		if err != nil {
			respondWithError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		u.session.SetRenderOptions(render.Options{
			ShowLines: req.ShowLines,
			ShowWords: req.ShowWords,
			Palette:   u.session.RenderOptions().Palette,
		})
		json.NewEncoder(w).Encode(u.currentSettings())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	response := map[string]string{
		"error": message,
	}
	json.NewEncoder(w).Encode(response)
}
