package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"riskgate/pkg/audit"
	"riskgate/pkg/auth"
	"riskgate/pkg/gate"
	"riskgate/pkg/geo"
	"riskgate/pkg/minimize"
	"riskgate/pkg/ml"
	"riskgate/pkg/observability/otelobs"
	"riskgate/pkg/records"
	"riskgate/pkg/riskclient"
	"riskgate/pkg/session"
	"riskgate/pkg/structlog"
)

const serviceName = "riskgate-gateway"

func main() {
	port := getEnv("PORT", "5010")
	logger := structlog.NewLogger(serviceName, structlog.LevelInfo, os.Stdout)
	structlog.SetDefaultLogger(logger)

	model, err := ml.DefaultBaseline()
	if err != nil {
		log.Fatalf("Failed to fit baseline model: %v", err)
	}
	scorer, err := ml.NewScorer(model)
	if err != nil {
		log.Fatalf("Failed to build scorer: %v", err)
	}

	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
	}
	drift := ml.NewDriftMonitor(ml.DefaultBaselineVectors(), 0, rdb)

	opa, err := gate.LoadOPA(os.Getenv("GATE_OPA_POLICY"))
	if err != nil {
		log.Fatalf("Failed to load gate policy: %v", err)
	}
	engine := gate.NewEngine(getEnvBool("GATE_FAIL_OPEN", true)).WithOPA(opa)

	policy := minimize.DefaultPolicy()
	if path := os.Getenv("FIELD_POLICY_FILE"); path != "" {
		policy, err = minimize.LoadPolicyFile(path)
		if err != nil {
			log.Fatalf("Failed to load field policy: %v", err)
		}
	}

	ledger, err := audit.NewLedger(serviceName, getEnv("LEDGER_PATH", "data/riskgate-audit.jsonl"))
	if err != nil {
		log.Fatalf("Failed to open audit ledger: %v", err)
	}
	defer ledger.Close()

	store, err := audit.NewStore(serviceName, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to initialize audit store: %v", err)
	}
	defer store.Close()

	gw := &Gateway{
		sessions:   session.NewManager(),
		geoResolve: geo.NewResolver(os.Getenv("GEO_URL")),
		scorer:     scorer,
		drift:      drift,
		engine:     engine,
		minimizer:  minimize.New(policy),
		oracle:     minimize.NewOracleClient(os.Getenv("ORACLE_URL")),
		riskScorer: riskclient.New(os.Getenv("RISK_SCORER_URL")),
		recordSrc:  records.NewClient(os.Getenv("RECORD_SOURCE_URL")),
		ledger:     ledger,
		store:      store,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /detect", gw.handleDetect)
	mux.HandleFunc("POST /sessions/{id}/events", gw.handleSessionEvents)
	mux.HandleFunc("POST /requests/{id}/submit", gw.handleSubmit)
	mux.HandleFunc("POST /minimize", gw.handleMinimize)
	mux.HandleFunc("GET /audit/anchor", gw.handleAnchor)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte(`{"status":"healthy","service":"` + serviceName + `"}`))
	})

	shutdown := otelobs.InitTracer(serviceName)
	defer shutdown(context.Background())

	var handler http.Handler = mux
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		authmw := auth.NewMiddleware(auth.Config{
			JWTSecret:   []byte(secret),
			BypassPaths: []string{"/health", "/metrics"},
		})
		handler = authmw.Authenticate(handler)
	}
	handler = otelobs.WrapHTTPHandler(serviceName, handler)

	log.Printf("Risk gateway starting on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
