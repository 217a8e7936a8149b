package cmd

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/anupcshan/hexbin/intelhex"
	"github.com/anupcshan/hexbin/output"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const defaultMaxRequestBytes = 64 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve conversions over HTTP",
	Long: `Run an HTTP server that converts Intel HEX files posted to /convert and
exposes Prometheus metrics on /metrics.

The request body is the text of the hex file. The response is the image in
the format selected by the "format" query parameter (raw by default).

Example:
  hexbin serve --listen :8080
  curl --data-binary @firmware.hex 'http://localhost:8080/convert?compact=1' > firmware.bin`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "Address to listen on")
	serveCmd.Flags().Int64("max-request-bytes", defaultMaxRequestBytes, "Largest accepted request body")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
	addConversionFlags(serveCmd)
}

type converter struct {
	conversion      conversionConfig
	maxRequestBytes int64
	rec             *Recorder
	logger          *slog.Logger
}

func runServe(cmd *cobra.Command, args []string) error {
	listenAddr, _ := cmd.Flags().GetString("listen")
	maxRequestBytes, _ := cmd.Flags().GetInt64("max-request-bytes")
	debug, _ := cmd.Flags().GetBool("debug")

	log.SetFlags(log.Lmicroseconds | log.Lshortfile)

	conversion, err := conversionConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	level.Set(slog.LevelInfo)
	if debug {
		level.Set(slog.LevelDebug)
	}

	c := &converter{
		conversion:      conversion,
		maxRequestBytes: maxRequestBytes,
		rec:             NewRecorder(),
		logger:          logger,
	}

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           c.mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Listening", "addr", listenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	done := make(chan bool, 1)

	go func() {
		log.Println("Listening for interrupt signals")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		<-sigCh
		close(done)
	}()

	<-done

	log.Println("Received signal. Beginning orderly shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func (c *converter) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/convert", c.handleConvert)
	mux.Handle("/metrics", c.rec.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (c *converter) handleConvert(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	logger := c.logger.With("request_id", reqID)
	w.Header().Set("X-Request-Id", reqID)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "use POST", http.StatusMethodNotAllowed)
		return
	}

	format, err := output.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conversion := c.conversion
	if v := r.URL.Query().Get("compact"); v != "" {
		compact, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "bad compact value: "+err.Error(), http.StatusBadRequest)
			return
		}
		conversion.compact = compact
	}
	if v := r.URL.Query().Get("type-policy"); v != "" {
		policy, err := intelhex.ParseTypePolicy(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		conversion.typePolicy = policy
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, c.maxRequestBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	img, err := intelhex.AssembleImage(string(body), conversion.options()...)
	elapsed := time.Since(start)
	c.rec.Observe(img, elapsed, err)
	if err != nil {
		logger.Warn("Conversion failed", "kind", intelhex.Kind(err), "err", err)
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	logger.Info("Converted",
		"records", len(img.Records),
		"bytes", len(img.Bytes),
		"origin", img.Origin,
		"elapsed", elapsed,
	)

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("X-Image-Origin", strconv.FormatUint(img.Origin, 10))
	w.Header().Set("X-Image-Size", strconv.Itoa(len(img.Bytes)))
	if err := output.Write(w, img.Bytes, format); err != nil {
		logger.Debug("Writing response failed", "err", err)
	}
}

func statusForError(err error) int {
	switch intelhex.Kind(err) {
	case "image_too_large":
		return http.StatusRequestEntityTooLarge
	case "other":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
