package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dagsync/cmd/dagsync/cache"
	"dagsync/cmd/dagsync/dagfile"
	"dagsync/cmd/dagsync/ingest"
	"dagsync/cmd/dagsync/postgresql"
	"dagsync/cmd/dagsync/recheck"
	"dagsync/cmd/dagsync/worker"
	"dagsync/internal"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"
)

func main() {
	InitLogging()
	internal.InitDebugTrace()
	InitPrometheus()

	dagFolder, err := env.GetAsString("DAG_FOLDER", true, "")
	if err != nil {
		zap.S().Fatal(err)
	}
	supportPause, err := env.GetAsBool("SUPPORT_PAUSE", false, true)
	if err != nil {
		zap.S().Fatalf("Failed to get SUPPORT_PAUSE from env: %s", err)
	}
	workerCount, err := env.GetAsInt("WORKER_COUNT", false, 4)
	if err != nil {
		zap.S().Fatalf("Failed to get WORKER_COUNT from env: %s", err)
	}
	queueSize, err := env.GetAsInt("QUEUE_SIZE", false, 1000)
	if err != nil {
		zap.S().Fatalf("Failed to get QUEUE_SIZE from env: %s", err)
	}
	recheckSeconds, err := env.GetAsInt("RECHECK_INTERVAL_SECONDS", false, 30)
	if err != nil {
		zap.S().Fatalf("Failed to get RECHECK_INTERVAL_SECONDS from env: %s", err)
	}
	ingestAddress, err := env.GetAsString("INGEST_ADDRESS", false, ":8080")
	if err != nil {
		zap.S().Fatalf("Failed to get INGEST_ADDRESS from env: %s", err)
	}

	postgres := postgresql.NewConnection()
	InitHealthCheck(postgres)

	dags := cache.NewDagCache()
	unregistered := cache.NewUnregisteredDagCache()
	files := dagfile.NewService(dagFolder)

	pool := worker.NewPool(queueSize, dags, unregistered, files, postgres, supportPause)
	pool.Start(workerCount)
	zap.S().Infof("Started %d dag consumers for folder %s (pause support: %t)", workerCount, dagFolder, supportPause)

	rechecker := recheck.NewRechecker(unregistered, postgres)
	go rechecker.Run(time.Duration(recheckSeconds) * time.Second)

	go ingest.Run(pool, ingestAddress)

	awaitShutdown(postgres)
	// We should never get to this await, but better to have it then to always close the program
	select {}
}

func awaitShutdown(postgres *postgresql.Connection) {
	// Allow graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)

	sig := <-sigs
	zap.S().Infof("Received SIG %v", sig)

	zap.S().Debugf("Closing database connection")
	postgres.Db.Close()
	os.Exit(0)
}

func InitLogging() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	_ = logger.New(logLevel)
}

func InitPrometheus() {
	// Prometheus
	metricsPath := "/metrics"
	metricsPort := ":2112"
	zap.S().Debugf("Setting up metrics %s %v", metricsPath, metricsPort)

	http.Handle(metricsPath, promhttp.Handler())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe(metricsPort, nil)
		if err != nil {
			zap.S().Errorf("Error starting metrics: %s", err)
		}
	}()
}

func InitHealthCheck(postgres *postgresql.Connection) {
	zap.S().Debugf("Setting up healthcheck")

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000000))
	health.AddReadinessCheck("database", postgres.HealthCheck())
	health.AddLivenessCheck("database", postgres.HealthCheck())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe("0.0.0.0:8086", health)
		if err != nil {
			zap.S().Errorf("Error starting healthcheck: %s", err)
		}
	}()
}
