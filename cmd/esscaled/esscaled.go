package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/coopernurse/esscale/pkg/config"
	"github.com/coopernurse/esscale/pkg/esdomain"
	"github.com/coopernurse/esscale/pkg/invoke"
	"github.com/coopernurse/esscale/pkg/scaler"
	log "github.com/mgutz/logxi/v1"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func mustStart(s *http.Server) {
	err := s.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Error("esscaled: unable to start HTTP server", "addr", s.Addr, "err", err)
		os.Exit(2)
	}
}

func loadConfig(envFile string) config.Config {
	var cfg config.Config
	var err error
	if envFile == "" {
		cfg, err = config.FromEnv()
	} else {
		cfg, err = config.FromEnvFile(envFile)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Error("esscaled: invalid config", "err", err)
		os.Exit(2)
	}
	return cfg
}

func main() {
	if os.Getenv("LOGXI") == "" {
		log.DefaultLog.SetLevel(log.LevelInfo)
	}
	if os.Getenv("LOGXI_FORMAT") == "" {
		log.ProcessLogxiFormatEnv("happy,maxcol=120")
	}

	var envFile = flag.String("envFile", "", "Path to env file with ES_* settings")
	flag.Parse()

	cfg := loadConfig(*envFile)
	log.Info("esscaled: starting", "domain", cfg.DomainName, "region", cfg.Region)

	awsSession, err := esdomain.NewAwsSession(cfg.Region)
	if err != nil {
		log.Error("esscaled: cannot create aws session", "err", err)
		os.Exit(2)
	}

	esScaler := scaler.NewScaler(scaler.Config{
		DomainName: cfg.DomainName,
		Limits: scaler.Limits{
			MinInstanceCount: cfg.MinInstanceCount,
			MaxInstanceCount: cfg.MaxInstanceCount,
			MinReplicasCount: cfg.MinReplicasCount,
		},
	}, esdomain.NewProvider(awsSession))
	invoker := invoke.NewInvoker(esScaler)

	cancelCtx, cancelFx := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	var servers []*http.Server
	if cfg.HttpPort > 0 {
		servers = append(servers, &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.HttpPort),
			ReadTimeout: 30 * time.Second,
			Handler:     invoke.NewHTTPHandler(invoker),
		})
		log.Info("esscaled: starting HTTP server", "port", cfg.HttpPort)
		for _, s := range servers {
			go mustStart(s)
		}
	}

	startSqsPoller(cancelCtx, wg, cfg, awsSession, invoker)
	startCronService(cancelCtx, wg, cfg, invoker)

	shutdownDone := make(chan struct{})
	go HandleShutdownSignal(servers, cancelFx, wg, shutdownDone)
	<-shutdownDone
}

func startSqsPoller(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, awsSession *session.Session,
	invoker *invoke.Invoker) {
	if cfg.SqsQueueName == "" {
		return
	}
	poller, err := invoke.NewSqsPoller(awsSession, cfg.SqsQueueName, cfg.SqsVisibilityTimeout, invoker)
	if err != nil {
		log.Error("esscaled: cannot create sqs poller", "queue", cfg.SqsQueueName, "err", err)
		os.Exit(2)
	}
	wg.Add(1)
	go poller.Run(ctx, wg)
}

func startCronService(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, invoker *invoke.Invoker) {
	if cfg.ScheduleFile == "" {
		return
	}
	schedule, err := invoke.LoadSchedule(cfg.ScheduleFile)
	if err != nil {
		log.Error("esscaled: cannot load schedule", "file", cfg.ScheduleFile, "err", err)
		os.Exit(2)
	}
	cronSvc, err := invoke.NewCronService(schedule, invoker, false)
	if err != nil {
		log.Error("esscaled: cannot create cron service", "file", cfg.ScheduleFile, "err", err)
		os.Exit(2)
	}
	wg.Add(1)
	go cronSvc.Run(ctx, wg)
}

func HandleShutdownSignal(svrs []*http.Server, cancelFx context.CancelFunc, wg *sync.WaitGroup,
	shutdownDone chan struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("esscaled: received shutdown signal, stopping HTTP servers")

	for _, s := range svrs {
		err := s.Shutdown(context.Background())
		if err != nil {
			log.Error("esscaled: during HTTP server shutdown", "err", err)
		}
	}

	cancelFx()
	wg.Wait()
	log.Info("esscaled: shutdown gracefully")
	close(shutdownDone)
}
