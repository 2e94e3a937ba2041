package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"vfskit/internal/billyfs"
	"vfskit/internal/config"
	"vfskit/internal/logging"
	"vfskit/internal/mount"
	"vfskit/internal/objstore"
	"vfskit/internal/vfs"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/errgroup"
)

var (
	logger = logging.GetLogger()
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	mountPoint := flag.String("mount", "", "Mount point for the virtual filesystem")
	backend := flag.String("backend", "", "Backend filesystem: host, memory or s3")
	sourcePath := flag.String("source", "", "Source directory for the host or memory backend")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	printConfig := flag.Bool("print-config", false, "Print the effective config and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	if *mountPoint != "" {
		cfg.MountPoint = *mountPoint
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *sourcePath != "" {
		cfg.Source = *sourcePath
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	if *printConfig {
		if err := cfg.Dump(os.Stdout); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		logger.Error("%v", err)
		_ = logging.Close()
		os.Exit(1)
	}
	_ = logging.Close()
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logging.Configure(cfg.Logging.Logging()); err != nil {
		return err
	}

	logger.Info("Starting vfsmount...")
	logger.Debug("Mount point: %s", cfg.MountPoint)
	logger.Debug("Backend: %s", cfg.Backend)
	logger.Debug("Source path: %s", cfg.Source)

	fsys, err := newBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s backend: %w", cfg.Backend, err)
	}

	cleanMount := filepath.Clean(cfg.MountPoint)
	m := mount.New(fsys, mount.WithName("vfsmount"))
	if err := m.Mount(cleanMount); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	served := make(chan struct{})

	g.Go(func() error {
		defer close(served)
		logger.Info("Serving filesystem...")
		return m.Serve()
	})

	g.Go(func() error {
		select {
		case <-served:
			// unmounted from outside
			return nil
		case <-gctx.Done():
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("Received shutdown signal")
		}
		return m.Unmount(cleanMount)
	})

	if err := mount.WaitForMount(cleanMount); err != nil {
		logger.Warn("%v", err)
	} else {
		logger.Info("Filesystem mounted and ready")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Clean shutdown complete")
	return nil
}

func newBackend(cfg *config.Config) (vfs.Filesystem[vfs.Path], error) {
	switch cfg.Backend {
	case config.BackendHost:
		return vfs.NewHostFilesystem(filepath.Clean(cfg.Source))
	case config.BackendMemory:
		if cfg.Source != "" {
			return billyfs.New(osfs.New(filepath.Clean(cfg.Source)), billyfs.WithFreeBytes(cfg.FreeBytes)), nil
		}
		return billyfs.New(memfs.New(), billyfs.WithFreeBytes(cfg.FreeBytes)), nil
	case config.BackendS3:
		return objstore.New(cfg.S3.ObjectStore())
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
