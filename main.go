package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	golog "log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tdictl/tdid/api"
	"github.com/tdictl/tdid/config"
	"github.com/tdictl/tdid/core"
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/log/loggers"
	"github.com/tdictl/tdid/netlink"
	"github.com/tdictl/tdid/statistics"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/backend/swtarget"
	"github.com/tdictl/tdid/tdi/commands"
	"github.com/tdictl/tdid/tdi/table"
)

const defaultAPISocket = "unix:///run/tdid.sock"

var (
	configFile  = config.DefaultPath
	programFile = ""
	apiSocket   = ""
	logFile     = ""
	debug       = false
	device      = 0
	dumpTable   = ""
	execLine    = ""

	lock      sync.Mutex
	err       = (error)(nil)
	loader    = (*config.Loader)(nil)
	target    = (*swtarget.Target)(nil)
	prog      = (*table.Program)(nil)
	registry  = (*commands.Registry)(nil)
	loggerMgr = (*loggers.LoggerManager)(nil)
	stats     = (*statistics.Statistics)(nil)
	server    = (*api.Server)(nil)
	monitor   = (*netlink.Monitor)(nil)
	sigChan   chan os.Signal
)

func init() {
	flag.StringVar(&configFile, "config", configFile, "Path to the daemon configuration file.")
	flag.StringVar(&programFile, "program", programFile, "Program description to load, overrides the configuration.")
	flag.StringVar(&apiSocket, "api-socket", apiSocket, "Address of the management API, unix:///path or host:port.")
	flag.IntVar(&device, "device", device, "Device the tables are operated on.")

	flag.StringVar(&dumpTable, "dump", dumpTable, "Print the entries of a table as JSON and exit.")
	flag.StringVar(&execLine, "exec", execLine, "Run a command line (\"<table> <command> [name=value ...]\") and exit.")

	flag.StringVar(&logFile, "log-file", logFile, "Write logs to this file instead of the standard output.")
	flag.BoolVar(&debug, "debug", debug, "Enable debug logs.")
}

func oneShot() bool {
	return dumpTable != "" || execLine != ""
}

func setupLogging() {
	golog.SetOutput(ioutil.Discard)
	if debug {
		log.SetLogLevel(log.DEBUG)
	} else {
		log.SetLogLevel(log.INFO)
	}

	if oneShot() {
		// stdout carries the result
		log.SetOutput(os.Stderr)
		if !debug {
			log.SetLogLevel(log.WARNING)
		}
		return
	}
	if logFile != "" {
		if err := log.OpenFile(logFile); err != nil {
			log.Error("Error opening log file %s: %s", logFile, err)
		}
	}
}

func applyConfig(conf config.Config) {
	if !debug && conf.LogLevel != nil {
		log.SetLogLevel(int(*conf.LogLevel))
	}
	log.SetLogUTC(conf.LogUTC)
	log.SetLogMicro(conf.LogMicro)

	if stats != nil {
		stats.SetConfig(conf.Stats)
	}
}

func setupSignals() {
	sigChan = make(chan os.Signal, 1)
	signal.Notify(sigChan,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sigChan
		log.Raw("\n")
		log.Important("Got signal: %v", sig)
		doCleanup()
		os.Exit(0)
	}()
}

func doCleanup() {
	lock.Lock()
	defer lock.Unlock()

	log.Info("Cleaning up ...")
	if monitor != nil {
		monitor.Stop()
	}
	if server != nil {
		server.Stop()
	}
	if target != nil {
		target.StopWatcher()
	}
	if prog != nil {
		prog.Close()
	}
	if stats != nil {
		stats.Stop()
	}
	if loggerMgr != nil {
		loggerMgr.Close()
	}
	if loader != nil {
		loader.StopConfigWatcher()
	}
	log.Close()
}

// openProgram opens the tables of the loaded target and builds their
// commands.
func openProgram() (*table.Program, *commands.Registry, error) {
	p, err := table.Open(target)
	if err != nil {
		return nil, nil, err
	}
	tgt := backend.Target{DevID: device, PipeID: backend.AllPipes}
	for _, t := range p.Tables() {
		t.SetTarget(tgt)
	}
	return p, commands.New(p), nil
}

// portTables registers a port status callback on the port tables, the
// configured one only if set.
func portTables(ctx context.Context, p *table.Program, name string) {
	for _, t := range p.Tables() {
		if name != "" && t.Name() != name && t.Schema().DriverName != name {
			continue
		}
		if !t.Schema().Supports("port_status_notif_cb_set") {
			continue
		}
		tableName := t.Name()
		err := t.SetPortStatusNotify(ctx, func(tgt backend.Target, key table.Values, up bool) {
			state := log.Red("down")
			if up {
				state = log.Green("up")
			}
			log.Important("%s: port %v is %s (device %d)", tableName, key, state, tgt.DevID)
		})
		if err != nil {
			log.Warning("%s: could not register port status notifications: %s", tableName, err)
		}
	}
}

func startMonitor(conf config.Config) {
	if !conf.Ports.Enabled {
		return
	}
	if monitor, err = netlink.NewMonitor(target, conf.Ports.Namespace, netlink.ByIndex); err != nil {
		log.Error("Error creating the port monitor: %s", err)
		return
	}
	if err = monitor.Start(); err != nil {
		log.Error("Error starting the port monitor: %s", err)
		monitor = nil
	}
}

func onProgramReloaded(conf config.Config) {
	lock.Lock()
	defer lock.Unlock()

	p, r, err := openProgram()
	if err != nil {
		log.Error("Error opening the reloaded program: %s", err)
		return
	}
	p.SetObserver(stats)
	if conf.Ports.Enabled {
		portTables(context.Background(), p, conf.Ports.Table)
	}
	server.SetProgram(p, r)
	old := prog
	prog, registry = p, r
	if err := old.Close(); err != nil {
		log.Warning("Error closing the previous program: %s", err)
	}
	log.Important("program reloaded, %d tables", len(p.Names()))
}

func runOneShot() int {
	ctx := context.Background()
	if dumpTable != "" {
		n := registry.Node(dumpTable)
		if n == nil {
			log.Error("unknown table %s", dumpTable)
			return 1
		}
		out, err := n.Table().DumpJSON(ctx, false)
		if err != nil && !table.IsNotFound(err) {
			log.Error("%s", err)
			return 1
		}
		if len(out) == 0 || err != nil {
			out = []byte("[]")
		}
		fmt.Println(string(out))
		return 0
	}

	out, err := registry.Run(ctx, execLine)
	if err != nil {
		log.Error("%s", err)
		return 1
	}
	fmt.Println(out)
	return 0
}

func main() {
	flag.Parse()

	setupLogging()

	if !oneShot() {
		log.Important("Starting %s v%s", core.Name, core.Version)
	}

	if loader, err = config.NewLoader(configFile); err != nil {
		log.Fatal("%s", err)
	}
	if err = loader.LoadDiskConfiguration(false); err != nil {
		log.Warning("running with the default configuration: %s", err)
	}
	conf := loader.Current()
	applyConfig(conf)

	if programFile == "" {
		programFile = conf.Program
	}
	if programFile, err = core.ExpandPath(programFile); err != nil || programFile == "" {
		log.Fatal("no program to load: %v", err)
	}
	if device == 0 {
		device = int(conf.Device)
	}

	log.Info("Loading program %s ...", programFile)
	if target, err = swtarget.Open(programFile); err != nil {
		log.Fatal("%s", err)
	}
	if prog, registry, err = openProgram(); err != nil {
		log.Fatal("%s", err)
	}

	if oneShot() {
		code := runOneShot()
		prog.Close()
		os.Exit(code)
	}

	if logFile == "" && conf.Server.LogFile != "" {
		if err := log.OpenFile(conf.Server.LogFile); err != nil {
			log.Error("Error opening log file %s: %s", conf.Server.LogFile, err)
		}
	}

	loggerMgr = loggers.NewLoggerManager()
	loggerMgr.Load(conf.Loggers, conf.Stats.Workers)
	stats = statistics.New(loggerMgr, conf.Stats)
	prog.SetObserver(stats)

	if apiSocket == "" {
		apiSocket = conf.Server.Address
	}
	if apiSocket == "" {
		apiSocket = defaultAPISocket
	}
	server = api.NewServer(prog, registry, stats)
	if err = server.Serve(apiSocket); err != nil {
		log.Fatal("%s", err)
	}

	if conf.Ports.Enabled {
		portTables(context.Background(), prog, conf.Ports.Table)
	}
	startMonitor(conf)

	if err = target.Watch(); err != nil {
		log.Warning("program live reload disabled: %s", err)
	}

	setupSignals()

	log.Info("Serving %d tables on %s ...", len(prog.Names()), apiSocket)
	for {
		select {
		case ok := <-loader.ReloadConfChan:
			if !ok {
				continue
			}
			conf = loader.Current()
			applyConfig(conf)
			log.Important("configuration reloaded")
		case <-target.Reloaded():
			onProgramReloaded(conf)
		}
	}
}
