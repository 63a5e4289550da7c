// Command nimbis-server runs the Nimbis key-value server: one shard per CPU, a RESP2
// front end, and a badger-backed storage engine per shard.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rsms/go-log"

	"nimbis/internal/command"
	"nimbis/internal/config"
	"nimbis/internal/storage"
	"nimbis/internal/worker"
)

// compactionInterval is how often each shard's background reaper sweeps stale records.
const compactionInterval = 30 * time.Second

var (
	opt_host           string
	opt_port           int
	opt_data_path      string
	opt_log_level      string
	opt_worker_threads int
)

func parseopts() {
	defaults := config.DefaultDefaults()
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\noptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&opt_host, "host", defaults.Host, "Bind address")
	flag.IntVar(&opt_port, "port", defaults.Port, "Listen port")
	flag.StringVar(&opt_data_path, "data_path", defaults.DataPath, "Directory for per-shard storage")
	flag.StringVar(&opt_log_level, "log_level", defaults.LogLevel, "debug | info | warn | error")
	flag.IntVar(&opt_worker_threads, "worker_threads", defaults.WorkerThreads, "Number of shards/workers")
	flag.Parse()
}

func main() {
	parseopts()

	switch opt_log_level {
	case "debug":
		log.RootLogger.Level = log.LevelDebug
	case "warn":
		log.RootLogger.Level = log.LevelWarn
	case "error":
		log.RootLogger.Level = log.LevelError
	default:
		log.RootLogger.Level = log.LevelInfo
	}
	log.RootLogger.SetWriter(os.Stderr)

	cfg := config.New(config.Defaults{
		Host:          opt_host,
		Port:          opt_port,
		DataPath:      opt_data_path,
		LogLevel:      opt_log_level,
		WorkerThreads: opt_worker_threads,
	}, log.RootLogger)

	table := command.NewTable()
	workers := make([]*worker.Worker, opt_worker_threads)
	for i := 0; i < opt_worker_threads; i++ {
		engine, err := storage.Open(opt_data_path, i, log.RootLogger)
		if err != nil {
			log.Error("shard %d: open failed: %v", i, err)
			os.Exit(1)
		}
		workers[i] = worker.NewWorker(i, engine, cfg, table)
		go workers[i].Run()

		filter := storage.NewCompactionFilter(engine, log.RootLogger)
		stop := make(chan struct{})
		go filter.Loop(compactionInterval, stop)
	}

	pool := &worker.Pool{Workers: workers}
	acceptor := worker.NewAcceptor(pool, log.RootLogger)

	addr := fmt.Sprintf("%s:%d", opt_host, opt_port)
	if err := acceptor.ListenAndServe(addr); err != nil {
		log.Error("accept loop exited: %v", err)
		os.Exit(1)
	}
}
