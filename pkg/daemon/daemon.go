package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battwatch/pkg/config"
	"github.com/charlie0129/battwatch/pkg/events"
	"github.com/charlie0129/battwatch/pkg/listener"
	"github.com/charlie0129/battwatch/pkg/platform/replay"
	"github.com/charlie0129/battwatch/pkg/platform/uevent"
	"github.com/charlie0129/battwatch/pkg/state"
)

type server struct {
	conf     *config.File
	metrics  *state.Metrics
	hub      *events.EventHub
	listener *listener.Listener

	// socketPath is empty until the socket is created.
	socketPath string
	// allowNonRoot is the command line override of AllowNonRootAccess.
	allowNonRoot bool
}

func setupRoutes(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/metrics", s.getMetrics)
	router.GET("/percent", s.getPercent)
	router.GET("/wattage", s.getWattage)
	router.GET("/events", s.streamEvents)
	router.GET("/ws", s.serveWebSocket)
	router.GET("/config", s.getConfig)
	router.GET("/version", getVersion)

	return router
}

func newPlatform(conf config.Config) (listener.Platform, error) {
	switch conf.Source() {
	case config.SourceUevent:
		return uevent.New(uevent.Options{
			PowerSupply:   conf.PowerSupply(),
			InvertCurrent: conf.InvertCurrent(),
		}), nil
	case config.SourceReplay:
		script, err := replay.Load(conf.ReplayFile())
		if err != nil {
			return nil, err
		}
		return replay.New(script), nil
	default:
		return nil, pkgerrors.Errorf("unknown source %q", conf.Source())
	}
}

func newServer(conf *config.File) (*server, error) {
	p, err := newPlatform(conf)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to set up power notification source")
	}

	policy, err := listener.ParsePercentPolicy(conf.MalformedPercent())
	if err != nil {
		return nil, err
	}

	m := state.NewMetrics()
	return &server{
		conf:     conf,
		metrics:  m,
		hub:      events.NewEventHub(),
		listener: listener.New(p, m, listener.WithPercentPolicy(policy)),
	}, nil
}

// applySocketMode opens the socket to every user when non-root access is
// allowed and restricts it to root otherwise.
func (s *server) applySocketMode() error {
	if s.socketPath == "" {
		return nil
	}

	var mode os.FileMode = 0755
	if s.conf.AllowNonRootAccess() || s.allowNonRoot {
		mode = 0777
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", s.socketPath)
	}
	if err := os.Chmod(s.socketPath, mode); err != nil {
		return pkgerrors.Wrapf(err, "failed to chmod %s", s.socketPath)
	}
	return nil
}

// reload re-reads the config file and applies what can change at runtime:
// the malformed percentage policy and the socket permissions. The power
// notification source is fixed for the life of the daemon.
func (s *server) reload() error {
	source, powerSupply := s.conf.Source(), s.conf.PowerSupply()
	if err := s.conf.Reload(); err != nil {
		return err
	}

	policy, err := listener.ParsePercentPolicy(s.conf.MalformedPercent())
	if err != nil {
		return err
	}
	s.listener.SetPercentPolicy(policy)

	if err := s.applySocketMode(); err != nil {
		return err
	}

	if s.conf.Source() != source || s.conf.PowerSupply() != powerSupply {
		logrus.Warn("power notification source changed, restart the daemon to apply it")
	}
	logrus.WithFields(s.conf.LogrusFields()).Infof("config reloaded")
	return nil
}

// bridge republishes every cell change on the event hub until ctx is done.
func (s *server) bridge(ctx context.Context) {
	percent, cancelPercent := s.metrics.Percent.Subscribe()
	defer cancelPercent()
	wattage, cancelWattage := s.metrics.Wattage.Subscribe()
	defer cancelWattage()

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-percent:
			s.hub.PublishMetric(events.BatteryPercent, "percent", v)
		case v := <-wattage:
			s.hub.PublishMetric(events.BatteryWattage, "wattage", v)
		}
	}
}

// Options configures Run.
type Options struct {
	// ConfigPath is the JSON config file, created with defaults if missing.
	ConfigPath string
	// SocketPath is where the HTTP API listens.
	SocketPath string
	// AllowNonRoot makes the socket world writable regardless of the config.
	AllowNonRoot bool
}

// Run serves the API until SIGINT or SIGTERM.
func Run(opts Options) error {
	unixSocketPath := opts.SocketPath
	conf, err := config.NewFile(opts.ConfigPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	if err := conf.ApplyEnvOverrides(); err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return pkgerrors.Wrap(err, "invalid config")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	s, err := newServer(conf)
	if err != nil {
		return err
	}
	s.socketPath = unixSocketPath
	s.allowNonRoot = opts.AllowNonRoot

	// Without a subscription nothing will ever be published, so this is fatal.
	if err := s.listener.Start(); err != nil {
		return err
	}
	defer s.listener.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.bridge(ctx)

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		defer signal.Stop(sigc)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigc:
			}
			if err := s.reload(); err != nil {
				logrus.WithError(err).Error("failed to reload config, keeping the previous one")
			}
		}
	}()

	// A socket left behind by a crashed daemon would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", unixSocketPath)
	}

	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if err := s.applySocketMode(); err != nil {
		_ = l.Close()
		return err
	}

	srv := &http.Server{
		Handler: setupRoutes(s),
		// Request contexts end with ctx, which terminates event streams on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	var runErr error
	select {
	case sig := <-sigc:
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
	case err := <-serveErr:
		logrus.Errorf("http server failed: %v", err)
		runErr = err
	}

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	cancel()
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	logrus.Info("exiting")
	return runErr
}
