package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/nexcar/rwe-km/internal/km"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
)

const horizonMonths = 24

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	unhealthy := flag.Bool("unhealthy", false, "report a degraded status on /health")
	latency := flag.Duration("latency", 0, "artificial delay added to /survival-analysis")
	flag.Parse()

	layout := persona.DefaultLayout()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		status := "ok"
		if *unhealthy {
			status = "degraded"
		}
		writeJSON(w, models.HealthResponse{Status: status})
	})

	mux.HandleFunc("/survival-analysis", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req models.AnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if *latency > 0 {
			time.Sleep(*latency)
		}
		writeJSON(w, buildResponse(layout, req))
	})

	logger := log.New(log.Writer(), "survival-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// buildResponse fabricates deterministic persona curves for every cell of the layout.
// The last cell is left out so the dashboard shows an empty subgroup.
func buildResponse(layout *persona.Layout, req models.AnalysisRequest) models.AnalysisResponse {
	indication, err := models.ParseIndication(req.Indication)
	if err != nil {
		indication = models.IndicationNHL
	}
	grid, _ := layout.For(string(indication))

	scale := 1.0
	if req.FilterType != "" && req.FilterType != "all" {
		scale = 0.5
	}
	shift := 0.0
	if req.AnalysisType == string(models.AnalysisOS) {
		shift = 0.08
	}

	var (
		personas []models.PersonaSeries
		total    int
		weighted float64
		i        int
	)
	for _, row := range grid.Rows {
		for _, col := range grid.Columns {
			i++
			if i == len(grid.Rows)*len(grid.Columns) {
				continue
			}
			n := int(math.Round(float64(8+(i*11)%37) * scale))
			target := 0.30 + float64((i*13)%45)/100 + shift
			curve := km.Synthetic(n, target, horizonMonths)
			key := persona.CanonicalKey(persona.Subgroup{RowTitle: row.KeyRow, Bulk: col.Bulk, Risk: col.Risk, Burden: col.Burden})
			personas = append(personas, models.PersonaSeries{Persona: key, N: n, X: curve.Times(), Y: curve.Probabilities()})
			total += n
			weighted += float64(n) * target
		}
	}

	overallTarget := 0.5
	if total > 0 {
		overallTarget = weighted / float64(total)
	}
	overall := km.Synthetic(total, overallTarget, horizonMonths)
	return models.AnalysisResponse{
		CohortSize:       total,
		OverallKM:        &models.KMSeries{N: total, X: overall.Times(), Y: overall.Probabilities()},
		PersonaKMObjects: personas,
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
