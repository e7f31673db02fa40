package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"streamplays.tv/internal/arbitration"
	"streamplays.tv/internal/broadcast"
	"streamplays.tv/internal/chat"
	"streamplays.tv/internal/config"
	"streamplays.tv/internal/emulator"
	"streamplays.tv/internal/persistence/indexdb"
	persistlog "streamplays.tv/internal/persistence/log"
	"streamplays.tv/internal/persistence/saves"
	"streamplays.tv/internal/status"
	"streamplays.tv/internal/transport/admin"
	"streamplays.tv/internal/transport/ws"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config.yaml (empty: built-in defaults)")
		addr        = flag.String("addr", "", "viewer listen address (default: server.ws_host:server.ws_port)")
		adminAddr   = flag.String("admin_addr", "", "admin listen address (default: server.ws_host:server.admin_port)")
		dataDir     = flag.String("data", "", "runtime data directory (default: persistence.data_dir)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite index")
		recordAudio = flag.Bool("record_audio", false, "record the audio stream to <data>/audio")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*dataDir) != "" {
		cfg.Persistence.DataDir = *dataDir
	}
	if *disableDB {
		cfg.Persistence.DisableDB = true
	}
	if *recordAudio {
		cfg.Persistence.RecordAudio = true
	}
	listenAddr := cfg.WSAddr()
	if strings.TrimSpace(*addr) != "" {
		listenAddr = *addr
	}
	adminListen := cfg.AdminAddr()
	if strings.TrimSpace(*adminAddr) != "" {
		adminListen = *adminAddr
	}

	store, err := saves.Open(cfg.Emulator.SaveDir, cfg.Emulator.MaxSaves)
	if err != nil {
		logger.Fatalf("open save dir: %v", err)
	}

	core, err := emulator.Open(cfg.Emulator.Core, emulator.CoreConfig{
		BIOSPath: cfg.Emulator.BIOSPath,
		ROMPath:  cfg.Emulator.ROMPath,
	})
	if err != nil {
		logger.Fatalf("open core: %v", err)
	}
	cleanPrev, _ := restoreOnStartup(store, core, cfg.Emulator.AutoRestore, logger)

	idx, err := openRuntimeIndex(cfg.Persistence.DataDir, cfg.Persistence.DisableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		idx.RecordSession(indexdb.SessionRow{
			StartedAt: time.Now().UnixMilli(),
			CleanPrev: cleanPrev,
			Core:      cfg.Emulator.Core,
			GameCode:  core.GameCode(),
		})
	}

	mirror, err := buildOffsite(cfg.Persistence.DataDir, logger)
	if err != nil {
		logger.Fatalf("init offsite mirror: %v", err)
	}
	var mirrorFn func(string)
	if mirror != nil {
		mirrorFn = mirror.Enqueue
	}

	inputLog := persistlog.NewInputLogger(cfg.Persistence.DataDir)
	if mirrorFn != nil {
		inputLog.SetOnClose(mirrorFn)
	}

	engine := arbitration.NewEngine(cfg.Arbitration())
	keys := &emulator.Keypad{}
	hub := broadcast.NewHub(cfg.Server.BroadcastCapacity)
	enc := emulator.NewFrameEncoder(cfg.Stream.JPEGQuality, hub, logger)

	saveCh := make(chan emulator.SaveBlob, 2)
	inputCh := make(chan emulator.InputEvent, 1024)
	driver := emulator.NewDriver(core, engine, keys, hub, enc, emulator.DriverConfig{
		TargetFPS:   cfg.Emulator.TargetFPS,
		Saves:       saveCh,
		InputEvents: inputCh,
		ReadState:   saves.ReadState,
	}, logger)
	reporter := status.NewReporter(engine, driver, time.Now(), logger)

	ctx, cancel := signalContext()
	defer cancel()

	// Sinks outlive the driver so its last saves and inputs are flushed.
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	var sinks sync.WaitGroup
	writer := &saveWriter{store: store, idx: idx, mirror: mirrorFn, gameCode: core.GameCode(), log: logger}
	sinks.Add(2)
	go func() {
		defer sinks.Done()
		writer.run(sinkCtx, saveCh)
	}()
	go func() {
		defer sinks.Done()
		recordInputs(sinkCtx, inputCh, inputLog, idx, logger)
	}()

	go enc.Run(ctx)
	go autoSave(ctx, cfg.AutoSaveInterval(), driver.Send, logger)
	go reporter.Run(ctx, hub, status.DefaultInterval)

	var chatClient *chat.Client
	if url := strings.TrimSpace(cfg.Chat.StreamplaceWSURL); url != "" {
		chatClient = chat.NewClient(url, cfg.Chat.StreamplaceToken, engine, logger)
		go chatClient.Run(ctx)
	} else {
		logger.Printf("chat.streamplace_ws_url is empty: chat ingest disabled")
	}

	var recorders sync.WaitGroup
	if cfg.Persistence.RecordAudio {
		if rec, err := openAudioRecorder(cfg.Persistence.DataDir); err != nil {
			logger.Printf("audio recording disabled: %v", err)
		} else {
			sub := hub.Subscribe()
			recorders.Add(1)
			go func() {
				defer recorders.Done()
				if err := rec.Record(ctx, sub, logger); err != nil {
					logger.Printf("wav recorder: %v", err)
				}
				if err := rec.Close(); err != nil {
					logger.Printf("wav close: %v", err)
				}
			}()
		}
	}

	driverDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		driver.Run(ctx)
		cancel()
	}()

	viewers := ws.NewServer(hub, keys, ws.Config{
		AdminToken:             cfg.Server.AdminToken,
		AllowAnonymousKeyboard: cfg.Server.AllowAnonymousKeyboard,
	}, logger)
	metrics := metricsSources{
		engine:  engine,
		driver:  driver,
		encoder: enc,
		hub:     hub,
		viewers: viewers,
		chat:    chatClient,
		idx:     idx,
		mirror:  mirror,
		saves:   writer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) { writeMetrics(rw, metrics) })
	if envBool("SP_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (SP_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/ws", viewers.Handler())

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("/healthz", healthz)
	admin.NewServer(cfg.Server.AdminToken, reporter, engine, driver, logger).Register(adminMux)

	srv := &http.Server{Addr: listenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	adminSrv := &http.Server{Addr: adminListen, Handler: adminMux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = adminSrv.Shutdown(ctx2)
		_ = srv.Shutdown(ctx2)
	}()

	go func() {
		logger.Printf("admin listening on %s", adminListen)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("admin ListenAndServe: %v", err)
			cancel()
		}
	}()

	logger.Printf("listening on %s (core=%s game=%s)", listenAddr, cfg.Emulator.Core, core.GameCode())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	<-driverDone
	hub.Close()
	recorders.Wait()
	stopSinks()
	sinks.Wait()

	if err := inputLog.Close(); err != nil {
		logger.Printf("close input log: %v", err)
	}
	if idx != nil {
		if err := idx.Close(); err != nil {
			logger.Printf("close index: %v", err)
		}
	}
	if mirror != nil {
		mirror.Close()
	}
	if err := store.WriteMarker(); err != nil {
		logger.Printf("write shutdown marker: %v", err)
		return
	}
	logger.Printf("clean shutdown (%d saves written)", writer.written.Load())
}

func healthz(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(200)
	_, _ = rw.Write([]byte("ok"))
}

func openAudioRecorder(dataDir string) (*emulator.WAVRecorder, error) {
	dir := filepath.Join(dataDir, "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("audio_%s.wav", time.Now().UTC().Format("20060102_150405"))
	return emulator.NewWAVRecorder(filepath.Join(dir, name))
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
