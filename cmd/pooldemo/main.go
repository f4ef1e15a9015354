// Command pooldemo opens a small connpool.Pool against MySQL or Postgres
// and runs a single query, printing its result and then the pool stats. It is a
// runnable illustration of the package doc example, not a load test.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fathiraz/connpool"
	"github.com/fathiraz/connpool/driver"
	"github.com/fathiraz/connpool/logging"
	"github.com/fathiraz/connpool/poolmetrics"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("POOLDEMO_DSN"), "data source name")
	backend := flag.String("backend", "mysql", "mysql or postgres")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	jsonLogs := flag.Bool("json-logs", false, "emit structured connection/transaction/query events as JSON")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("pooldemo: -dsn (or POOLDEMO_DSN) is required")
	}

	var opener driver.Opener
	var err error
	switch *backend {
	case "mysql":
		opener, err = driver.NewMySQLOpener(context.Background(), *dsn)
	case "postgres":
		opener = driver.NewPostgresOpener()
	default:
		log.Fatalf("pooldemo: unknown backend %q", *backend)
	}
	if err != nil {
		log.Fatalf("pooldemo: opener: %v", err)
	}

	var structuredLogger logging.Logger
	if *jsonLogs {
		cfg := logging.DefaultLoggerConfig()
		cfg.Format = "json"
		structuredLogger = logging.NewStandardLogger(cfg)
	}

	pool, err := connpool.New(connpool.Config{
		Opener:             opener,
		DSN:                *dsn,
		MinimumConnections: 2,
		MaximumConnections: 10,
		ValidateOnBorrow:   true,
		StatementCacheSize: 50,
		AutoCommit:         true,
		StructuredLogger:   structuredLogger,
	})
	if err != nil {
		log.Fatalf("pooldemo: new pool: %v", err)
	}
	pool.TraceOn("[pooldemo]", connpool.NewSlogLogger(slog.Default()))
	defer pool.Close(context.Background())

	collector := poolmetrics.NewCollector("pooldemo", nil)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("pooldemo: metrics server: %v", err)
			}
		}()
		defer server.Close()
	}

	metricsTicker := time.NewTicker(500 * time.Millisecond)
	defer metricsTicker.Stop()
	metricsDone := make(chan struct{})
	defer close(metricsDone)
	go func() {
		for {
			select {
			case <-metricsTicker.C:
				stats := pool.Stats()
				collector.Observe(poolmetrics.PoolStats(stats))
				if structuredLogger != nil {
					structuredLogger.LogMetrics(context.Background(), &logging.PerformanceMetrics{
						ConnectionsActive: stats.Active,
						ConnectionsIdle:   stats.Available,
						Timestamp:         time.Now(),
					})
				}
			case <-metricsDone:
				return
			}
		}
	}()

	ctx := context.Background()
	conn, ctx, err := pool.Borrow(ctx)
	if err != nil {
		log.Fatalf("pooldemo: borrow: %v", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, "SELECT 1")
	if err != nil {
		log.Fatalf("pooldemo: query: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			log.Fatalf("pooldemo: scan: %v", err)
		}
		fmt.Println("result:", n)
	}

	stats := pool.Stats()
	fmt.Printf("pool stats after one query: total=%d available=%d active=%d churn=%d\n",
		stats.TotalCount, stats.Available, stats.Active, stats.ChurnCount)

	time.Sleep(50 * time.Millisecond)
}
