package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Spidey0819/Container-1/calc"
	"github.com/Spidey0819/Container-1/gateway"
	"github.com/Spidey0819/Container-1/storage"
	"github.com/boltdb/bolt"
	"github.com/google/gops/agent"
	log "github.com/sirupsen/logrus"
)

func main() {
	configFile := flag.String("config", "", "location of optional configuration file")
	flag.Parse()

	config, err := loadConfig(*configFile)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *configFile,
		}).Fatal("Could not load configuration")
	}

	if config.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := agent.Listen(agent.Options{
		ShutdownCleanup: true,
	}); err != nil {
		log.WithField("err", err).Warn("Could not start gops agent")
	} else {
		defer agent.Close()
	}

	store, cleanup := newStore(config)
	defer cleanup()

	calculator := calc.New(
		calc.WithURL(config.Calculator.URL),
		calc.WithTimeout(time.Duration(config.Calculator.TimeoutSeconds)*time.Second),
		calc.WithRateLimit(config.Calculator.RateLimit),
	)
	log.WithFields(log.Fields{
		"url":     calculator.URL(),
		"timeout": config.Calculator.TimeoutSeconds,
	}).Info("Will forward calculations")

	srv := gateway.New(
		gateway.WithAddress(config.Address),
		gateway.WithStore(store),
		gateway.WithCalculator(calculator),
	)
	addr, err := srv.Listen()
	if err != nil {
		log.WithField("err", err).Fatal("Could not listen")
	}
	log.WithFields(log.Fields{"addr": addr}).Info("Listening")

	// Before we call srv.Serve(), which never returns unless srv.Shutdown() is
	// called, we need to install a signal handler to call srv.Shutdown().
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		log.WithField("signal", sig).Info("Shutting down server")
		if err := srv.Shutdown(); err != nil {
			log.WithFields(log.Fields{"err": err}).Warn("Could not shut down the server cleanly")
		}
	}()

	if err := srv.Serve(); err != nil {
		log.Error(err)
	}
}

func newStore(c *config) (store storage.Store, cleanup func()) {
	switch c.Storage.Type {
	case "bolt":
		file := os.ExpandEnv(c.Storage.BoltPath)
		if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
			log.Fatalf("Could not ensure directory for %q exists: %v", file, err)
		}
		db, err := bolt.Open(file, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			log.Fatalf("Could not open database %q: %v", file, err)
		}
		boltStore, err := storage.NewBoltStore(db)
		if err != nil {
			log.Fatalf("Could not instantiate boltdb store at %q: %v", file, err)
		}
		log.Infof("Will use a bolt-based backend storing data at %s", file)
		return boltStore, func() {
			if err := db.Close(); err != nil {
				log.Warnf("Could not close boltdb database: %v", err)
			}
		}
	case "s3":
		log.WithFields(log.Fields{
			"region": c.Storage.Region,
			"bucket": c.Storage.Bucket,
			"prefix": c.Storage.Prefix,
		}).Info("Will use an S3 backend")
		return storage.NewS3(c.Storage.Profile, c.Storage.Region, c.Storage.Bucket, c.Storage.Prefix), func() {}
	default:
		dir := os.ExpandEnv(c.Storage.Root)
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Could not ensure directory %q exists: %v", dir, err)
		}
		log.Infof("Will use a disk-based backend storing data at %s", dir)
		return storage.NewDiskStore(dir), func() {}
	}
}
